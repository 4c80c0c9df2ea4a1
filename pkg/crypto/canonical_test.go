package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
)

func hexString(b []byte) string {
	return hex.EncodeToString(b)
}

func TestCanonicalMarshal_SortsKeys(t *testing.T) {
	out, err := CanonicalMarshal(map[string]any{"b": 1, "a": "x", "c": []any{true, nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":[true,null]}`, string(out))
}

func TestCanonicalMarshal_RequiresNFC(t *testing.T) {
	composed, err := CanonicalMarshal(map[string]string{"brief": "caf\u00e9"})
	require.NoError(t, err)
	assert.Equal(t, "{\"brief\":\"caf\u00e9\"}", string(composed))

	_, err = CanonicalMarshal(map[string]string{"brief": "cafe\u0301"})
	assert.ErrorIs(t, err, colonyerr.ErrInvalidArgument)
	_, err = CanonicalMarshal(map[string]any{"cafe\u0301": 1})
	assert.ErrorIs(t, err, colonyerr.ErrInvalidArgument)
	_, err = CanonicalMarshal(map[string]any{"list": []any{"ok", "cafe\u0301"}})
	assert.ErrorIs(t, err, colonyerr.ErrInvalidArgument)
}

func TestCanonicalMarshal_Structs(t *testing.T) {
	type payload struct {
		Nonce    uint64 `json:"nonce"`
		Function string `json:"function"`
	}
	out, err := CanonicalMarshal(payload{Nonce: 3, Function: "setTaskDomain"})
	require.NoError(t, err)
	assert.Equal(t, `{"function":"setTaskDomain","nonce":3}`, string(out))
}

func TestCanonicalDigest_DiffersByNonce(t *testing.T) {
	a, err := CanonicalDigest(map[string]any{"nonce": 0})
	require.NoError(t, err)
	b, err := CanonicalDigest(map[string]any{"nonce": 1})
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
