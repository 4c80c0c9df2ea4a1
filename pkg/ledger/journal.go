// Package ledger keeps the journal of applied network mutations.
//
// Every entry is hash-chained to its predecessor and the chain is append-only.
// The network writes an entry before applying the mutation it describes, so a
// mutation is never visible without its journal record.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the PrevHash of the first entry.
const GenesisHash = "genesis"

// Entry is an immutable, hash-chained journal record.
type Entry struct {
	Sequence    uint64          `json:"sequence"`
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Colony      string          `json:"colony,omitempty"`
	Author      string          `json:"author,omitempty"`
	Data        json.RawMessage `json:"data"`
	PrevHash    string          `json:"prev_hash"`
	ContentHash string          `json:"content_hash"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Record is what a caller asks the journal to append.
type Record struct {
	Kind   string
	Colony string
	Author string
	Data   map[string]interface{}
}

// Store persists entries in sequence order.
type Store interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
	Last(ctx context.Context) (Entry, bool, error)
}

// Journal appends hash-chained entries to a Store.
type Journal struct {
	mu       sync.Mutex
	store    Store
	sequence uint64
	headHash string
	clock    func() time.Time
}

// NewJournal resumes the chain held by store.
func NewJournal(ctx context.Context, store Store) (*Journal, error) {
	j := &Journal{store: store, headHash: GenesisHash, clock: time.Now}
	last, ok, err := store.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal head: %w", err)
	}
	if ok {
		j.sequence = last.Sequence
		j.headHash = last.ContentHash
	}
	return j, nil
}

// NewMemoryJournal is a journal over a fresh MemoryStore.
func NewMemoryJournal() *Journal {
	return &Journal{store: NewMemoryStore(), headHash: GenesisHash, clock: time.Now}
}

// WithClock overrides clock for testing.
func (j *Journal) WithClock(clock func() time.Time) *Journal {
	j.clock = clock
	return j
}

// Append chains rec onto the head and persists it. The head only moves if the
// store accepted the entry.
func (j *Journal) Append(ctx context.Context, rec Record) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(rec.Data)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal entry: %w", err)
	}
	e := Entry{
		Sequence:  j.sequence + 1,
		ID:        uuid.NewString(),
		Kind:      rec.Kind,
		Colony:    rec.Colony,
		Author:    rec.Author,
		Data:      data,
		PrevHash:  j.headHash,
		Timestamp: j.clock().UTC(),
	}
	e.ContentHash, err = contentHash(e)
	if err != nil {
		return Entry{}, err
	}
	if err := j.store.Append(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("failed to persist journal entry %d: %w", e.Sequence, err)
	}
	j.sequence = e.Sequence
	j.headHash = e.ContentHash
	return e, nil
}

// Head returns the current head hash.
func (j *Journal) Head() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.headHash
}

// Length returns the number of entries.
func (j *Journal) Length() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sequence
}

// Entries returns every persisted entry.
func (j *Journal) Entries(ctx context.Context) ([]Entry, error) {
	return j.store.List(ctx)
}

// Verify re-checks the persisted chain.
func (j *Journal) Verify(ctx context.Context) error {
	entries, err := j.store.List(ctx)
	if err != nil {
		return err
	}
	return Verify(entries)
}

// Verify checks the integrity of a chain of entries.
func Verify(entries []Entry) error {
	prevHash := GenesisHash
	for i, entry := range entries {
		if entry.Sequence != uint64(i)+1 {
			return fmt.Errorf("sequence gap at entry %d: got %d", i+1, entry.Sequence)
		}
		if entry.PrevHash != prevHash {
			return fmt.Errorf("chain broken at entry %d: expected prev %s, got %s", i+1, prevHash, entry.PrevHash)
		}
		computed, err := contentHash(entry)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i+1, err)
		}
		if computed != entry.ContentHash {
			return fmt.Errorf("hash mismatch at entry %d", i+1)
		}
		prevHash = entry.ContentHash
	}
	return nil
}

func contentHash(e Entry) (string, error) {
	hashInput := struct {
		Seq      uint64          `json:"seq"`
		Kind     string          `json:"kind"`
		Colony   string          `json:"colony"`
		Author   string          `json:"author"`
		Data     json.RawMessage `json:"data"`
		PrevHash string          `json:"prev"`
	}{e.Sequence, e.Kind, e.Colony, e.Author, e.Data, e.PrevHash}

	raw, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry: %w", err)
	}
	h := sha256.Sum256(raw)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}
