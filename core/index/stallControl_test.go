package index

import (
	"context"
	"testing"
	"time"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStallControlReleasesWaiters(t *testing.T) {
	sc := newDocumentsWriterStallControl(nil)
	require.NoError(t, sc.waitIfStalled(context.Background()))

	sc.updateStalled(true)
	tassert.True(t, sc.anyStalledThreads())

	done := make(chan error, 1)
	go func() { done <- sc.waitIfStalled(context.Background()) }()

	require.Eventually(t, sc.hasBlocked, time.Second, time.Millisecond)
	select {
	case <-done:
		t.Fatal("waiter returned while stalled")
	default:
	}

	sc.updateStalled(false)
	select {
	case err := <-done:
		tassert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not released")
	}
	tassert.False(t, sc.anyStalledThreads())
	tassert.Eventually(t, func() bool { return !sc.hasBlocked() }, time.Second, time.Millisecond)
}

func TestStallControlHonorsContext(t *testing.T) {
	sc := newDocumentsWriterStallControl(nil)
	sc.updateStalled(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := sc.waitIfStalled(ctx)
	tassert.ErrorIs(t, err, context.DeadlineExceeded)
	tassert.True(t, sc.anyStalledThreads())
}
