package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestJournal_AppendChains(t *testing.T) {
	j := NewMemoryJournal().WithClock(fixedClock)
	ctx := context.Background()

	first, err := j.Append(ctx, Record{Kind: "colony.created", Colony: "0x01", Data: map[string]interface{}{"token": "CLNY"}})
	require.NoError(t, err)
	second, err := j.Append(ctx, Record{Kind: "task.created", Colony: "0x01", Author: "0xaa", Data: map[string]interface{}{"task": 1}})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, GenesisHash, first.PrevHash)
	assert.Equal(t, first.ContentHash, second.PrevHash)
	assert.Equal(t, second.ContentHash, j.Head())
	assert.Equal(t, uint64(2), j.Length())
	assert.Equal(t, fixedClock(), second.Timestamp)
	assert.NotEqual(t, first.ID, second.ID)

	require.NoError(t, j.Verify(ctx))
}

func TestJournal_VerifyDetectsTampering(t *testing.T) {
	j := NewMemoryJournal()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := j.Append(ctx, Record{Kind: "fund.contributed", Data: map[string]interface{}{"amount": i}})
		require.NoError(t, err)
	}

	entries, err := j.Entries(ctx)
	require.NoError(t, err)
	require.NoError(t, Verify(entries))

	entries[1].Data = json.RawMessage(`{"amount":1000}`)
	assert.ErrorContains(t, Verify(entries), "hash mismatch at entry 2")

	entries, _ = j.Entries(ctx)
	entries[2].PrevHash = "sha256:forged"
	assert.ErrorContains(t, Verify(entries), "chain broken at entry 3")

	entries, _ = j.Entries(ctx)
	assert.ErrorContains(t, Verify(entries[1:]), "sequence gap")
}

type failingStore struct {
	MemoryStore
	err error
}

func (s *failingStore) Append(ctx context.Context, e Entry) error {
	return s.err
}

func TestJournal_StoreFailureKeepsHead(t *testing.T) {
	cause := errors.New("disk full")
	j, err := NewJournal(context.Background(), &failingStore{err: cause})
	require.NoError(t, err)

	_, err = j.Append(context.Background(), Record{Kind: "task.created"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, GenesisHash, j.Head())
	assert.Zero(t, j.Length())
}

func TestJournal_ResumesFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	j, err := NewJournal(ctx, store)
	require.NoError(t, err)
	last, err := j.Append(ctx, Record{Kind: "network.created"})
	require.NoError(t, err)

	resumed, err := NewJournal(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, last.ContentHash, resumed.Head())

	next, err := resumed.Append(ctx, Record{Kind: "colony.created"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next.Sequence)
	require.NoError(t, resumed.Verify(ctx))
}
