package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AcquireAndRelease(t *testing.T) {
	l := NewLimiter(2, 10, time.Second)

	ctx := context.Background()
	release1, err := l.Acquire(ctx, "imap.example.com")
	require.NoError(t, err)
	release2, err := l.Acquire(ctx, "imap.example.com")
	require.NoError(t, err)

	release1()
	release2()
}

func TestLimiter_BlocksBeyondConcurrencyCap(t *testing.T) {
	l := NewLimiter(1, 10, time.Second)

	ctx := context.Background()
	release, err := l.Acquire(ctx, "imap.example.com")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(waitCtx, "imap.example.com")
	assert.Error(t, err)

	release()
}

func TestLimiter_SeparateHostsDontContend(t *testing.T) {
	l := NewLimiter(1, 10, time.Second)

	ctx := context.Background()
	releaseA, err := l.Acquire(ctx, "host-a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := l.Acquire(ctx, "host-b")
	require.NoError(t, err)
	defer releaseB()
}

func TestLimiter_NewConnectionRateGate(t *testing.T) {
	l := NewLimiter(10, 1, time.Hour)

	ctx := context.Background()
	release, err := l.Acquire(ctx, "imap.example.com")
	require.NoError(t, err)
	release()

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(waitCtx, "imap.example.com")
	assert.Error(t, err)
}
