package webhook

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Pick_Uniformity(t *testing.T) {
	const trials = 40000

	pool := []string{
		"https://hooks.example/a",
		"https://hooks.example/b",
		"https://hooks.example/c",
		"https://hooks.example/d",
	}

	s := NewSelector(pool, rand.New(rand.NewSource(1))) //nolint:gosec

	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		url := s.Pick()
		require.Contains(t, pool, url)
		counts[url]++
	}

	require.Len(t, counts, len(pool))

	expected := float64(trials) / float64(len(pool))
	for url, count := range counts {
		t.Run(fmt.Sprintf("frequency of %s", url), func(t *testing.T) {
			assert.InEpsilon(t, expected, float64(count), 0.05)
		})
	}
}

func Test_Pick_EmptyPool(t *testing.T) {
	s := NewSelector(nil, nil)
	assert.Empty(t, s.Pick())
}

func Test_Pick_SinglePool(t *testing.T) {
	s := NewSelector([]string{"https://hooks.example/only"}, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, "https://hooks.example/only", s.Pick())
	}
}
