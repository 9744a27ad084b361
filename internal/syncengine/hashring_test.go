package syncengine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedHashRing_AssignsEveryAccount(t *testing.T) {
	ring := newBoundedHashRing(1.25)
	workers := []string{"worker-a", "worker-b", "worker-c"}
	accounts := make([]string, 0, 90)
	for i := 0; i < 90; i++ {
		accounts = append(accounts, fmt.Sprintf("account-%d", i))
	}

	assignment := ring.Assign(workers, accounts)

	assert.Len(t, assignment, len(accounts))
	for _, a := range accounts {
		w, ok := assignment[a]
		assert.True(t, ok)
		assert.Contains(t, workers, w)
	}
}

func TestBoundedHashRing_NoWorkersYieldsEmptyAssignment(t *testing.T) {
	ring := newBoundedHashRing(1.1)
	assignment := ring.Assign(nil, []string{"a", "b"})
	assert.Empty(t, assignment)
}

func TestBoundedHashRing_RespectsLoadBound(t *testing.T) {
	ring := newBoundedHashRing(1.1)
	workers := []string{"w1", "w2", "w3", "w4"}
	accounts := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		accounts = append(accounts, fmt.Sprintf("account-%d", i))
	}

	assignment := ring.Assign(workers, accounts)

	counts := make(map[string]int)
	for _, w := range assignment {
		counts[w]++
	}

	average := len(accounts) / len(workers)
	maxAllowed := int(float64(average)*1.1) + 2
	for w, c := range counts {
		assert.LessOrEqualf(t, c, maxAllowed, "worker %s got %d accounts, expected at most %d", w, c, maxAllowed)
	}
}

func TestBoundedHashRing_StableForUnchangedInputs(t *testing.T) {
	ring := newBoundedHashRing(1.2)
	workers := []string{"w1", "w2", "w3"}
	accounts := []string{"a1", "a2", "a3", "a4", "a5"}

	first := ring.Assign(workers, accounts)
	second := ring.Assign(workers, accounts)

	assert.Equal(t, first, second)
}
