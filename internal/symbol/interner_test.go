package symbol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternerRoundTrip(t *testing.T) {
	in := NewInterner()

	id, err := in.Intern("hello")
	require.NoError(t, err)

	got, ok := in.Resolve(id)
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestInternerIdempotent(t *testing.T) {
	in := NewInterner()

	id1, err := in.Intern("add")
	require.NoError(t, err)
	id2, err := in.Intern("add")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "interning the same string twice must return the same id")
}

func TestInternerDistinctStrings(t *testing.T) {
	in := NewInterner()

	id1, _ := in.Intern("add")
	id2, _ := in.Intern("subtract")

	assert.NotEqual(t, id1, id2)
}

func TestInternerRejectsOversizedStrings(t *testing.T) {
	in := NewInterner()

	huge := strings.Repeat("x", maxInternedLen+1)
	_, err := in.Intern(huge)
	assert.Error(t, err)
}

func TestInternerZeroIDMeansAbsent(t *testing.T) {
	in := NewInterner()

	_, ok := in.Resolve(0)
	assert.False(t, ok)
}

// TestInternerConcurrentInternIsIdempotent exercises the interner from
// many goroutines to make sure concurrent Intern calls on the same string
// still converge on one id.
func TestInternerConcurrentInternIsIdempotent(t *testing.T) {
	in := NewInterner()
	const workers = 32

	results := make(chan InternedID, workers)
	for i := 0; i < workers; i++ {
		go func() {
			id, err := in.Intern("shared")
			require.NoError(t, err)
			results <- id
		}()
	}

	first := <-results
	for i := 1; i < workers; i++ {
		assert.Equal(t, first, <-results)
	}
}
