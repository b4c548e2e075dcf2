package gameid

import (
	"bytes"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedIDsValidateAndSort(t *testing.T) {
	ids := make([]string, 0, 8)
	seen := make(map[string]struct{})
	for range 8 {
		id := Generate()
		require.NoError(t, Validate(id))
		require.Len(t, id, Length)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}

		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}
	assert.True(t, sort.StringsAreSorted(ids), "ids should sort by creation time: %v", ids)
}

func TestEncodeBoundaries(t *testing.T) {
	var zero, one, max uuid.UUID
	one[15] = 1
	for i := range max {
		max[i] = 0xff
	}

	assert.Equal(t, strings.Repeat("0", Length), encode(zero))
	assert.Equal(t, strings.Repeat("0", Length-1)+"1", encode(one))
	assert.Equal(t, "7"+strings.Repeat("z", Length-1), encode(max))
}

func TestGeneratorEntropyIsReproducible(t *testing.T) {
	// The low bits come only from the entropy reader.
	entropy := bytes.Repeat([]byte{0x5a}, 64)
	a := NewGenerator(bytes.NewReader(entropy)).Generate()
	b := NewGenerator(bytes.NewReader(entropy)).Generate()

	require.NoError(t, Validate(a))
	require.NoError(t, Validate(b))
	assert.Equal(t, a[Length-10:], b[Length-10:])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"well formed", "01j9zq4m2k8r6t0v3x5c7b9d1f", true},
		{"short", "01j9zq4m2k8r6t0v3x5c7", false},
		{"long", "01j9zq4m2k8r6t0v3x5c7b9d1fgh", false},
		{"leading digit above 7", "91j9zq4m2k8r6t0v3x5c7b9d1f", false},
		{"excluded letter", "01j9zq4m2k8r6t0v3x5c7b9d1u", false},
		{"upper case", "01J9ZQ4M2K8R6T0V3X5C7B9D1F", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
