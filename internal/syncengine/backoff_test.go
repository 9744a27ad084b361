package syncengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFullJitterBackoff_WithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	max := 5 * time.Second

	for attempt := 0; attempt < 10; attempt++ {
		for i := 0; i < 20; i++ {
			d := fullJitterBackoff(base, max, attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, max)
		}
	}
}

func TestFullJitterBackoff_CapsAtMax(t *testing.T) {
	base := time.Second
	max := 2 * time.Second

	d := fullJitterBackoff(base, max, 20)
	assert.LessOrEqual(t, d, max)
}

func TestFullJitterBackoff_NegativeAttemptTreatedAsZero(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	d := fullJitterBackoff(base, max, -5)
	assert.LessOrEqual(t, d, base)
}

func TestMinInt(t *testing.T) {
	assert.Equal(t, 3, minInt(3, 5))
	assert.Equal(t, 3, minInt(5, 3))
	assert.Equal(t, 3, minInt(3, 3))
}
