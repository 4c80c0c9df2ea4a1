package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
)

// CanonicalMarshal renders v as RFC 8785 canonical JSON. Every string in v,
// keys included, must already be in Unicode NFC; any other string is rejected
// with colonyerr.ErrInvalidArgument and never rewritten.
func CanonicalMarshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical encoding failed: %w", err)
	}

	raw := append([]byte(nil), buf.Bytes()...)
	var generic interface{}
	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical decoding failed: %w", err)
	}

	if err := checkNormalized(generic); err != nil {
		return nil, err
	}
	out, err := jcs.Transform(bytes.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("jcs transform failed: %w", err)
	}
	return out, nil
}

// CanonicalDigest returns sha256 over the canonical form of v.
func CanonicalDigest(v interface{}) ([]byte, error) {
	raw, err := CanonicalMarshal(v)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	return sum[:], nil
}

func checkNormalized(v interface{}) error {
	switch t := v.(type) {
	case string:
		if !norm.NFC.IsNormalString(t) {
			return colonyerr.New(colonyerr.ErrInvalidArgument, "string %q is not NFC-normalized", t)
		}
	case map[string]interface{}:
		for k, val := range t {
			if err := checkNormalized(k); err != nil {
				return err
			}
			if err := checkNormalized(val); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, val := range t {
			if err := checkNormalized(val); err != nil {
				return err
			}
		}
	}
	return nil
}
