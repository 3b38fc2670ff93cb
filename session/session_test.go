package session

import (
	"encoding/hex"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestResolveOrCreate(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		newID    func() (string, error)
		expect   string
		isNew    bool
		err      string
	}{
		{
			"Existing",
			"abc",
			nil,
			"abc",
			false,
			"",
		},
		{
			"Minted",
			"",
			func() (string, error) { return "fixed", nil },
			"fixed",
			true,
			"",
		},
		{
			"RandomFailure",
			"",
			func() (string, error) { return "", errors.New("entropy exhausted") },
			"",
			false,
			"entropy exhausted",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(tt *testing.T) {
			r := &Resolver{NewID: test.newID}
			id, isNew, err := r.ResolveOrCreate(test.existing)
			if test.err != "" {
				assert.EqualError(tt, err, test.err)
			} else {
				assert.NoError(tt, err)
			}
			assert.Equal(tt, test.expect, id)
			assert.Equal(tt, test.isNew, isNew)
		})
	}
}

func TestResolveOrCreateToken(t *testing.T) {
	r := NewResolver()
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id, isNew, err := r.ResolveOrCreate("")
		assert.NoError(t, err)
		assert.True(t, isNew)
		assert.Len(t, id, 2*TokenBytes)
		assert.Regexp(t, tokenPattern, id)
		assert.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}

// Every bit position must vary across minted tokens; a fixed version or
// variant nibble would not.
func TestNewTokenNoFixedBits(t *testing.T) {
	var and, or [TokenBytes]byte
	for i := range and {
		and[i] = 0xff
	}
	for i := 0; i < 256; i++ {
		id, err := NewToken()
		assert.NoError(t, err)
		raw, err := hex.DecodeString(id)
		assert.NoError(t, err)
		assert.Len(t, raw, TokenBytes)
		for j, b := range raw {
			and[j] &= b
			or[j] |= b
		}
	}
	for j := 0; j < TokenBytes; j++ {
		assert.Equal(t, byte(0x00), and[j], "byte %d has bits always set", j)
		assert.Equal(t, byte(0xff), or[j], "byte %d has bits never set", j)
	}
}

func TestRequire(t *testing.T) {
	_, err := Require("")
	assert.ErrorIs(t, err, ErrMissingSession)

	id, err := Require("abc")
	assert.NoError(t, err)
	assert.Equal(t, "abc", id)
}
