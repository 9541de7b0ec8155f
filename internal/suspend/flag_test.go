package suspend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag_WaitReturnsWhenNotSuspended(t *testing.T) {
	f := New()
	assert.False(t, f.Suspended())
	assert.True(t, f.Active())

	done := make(chan struct{})
	go func() {
		f.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked on an unsuspended flag")
	}
}

func TestFlag_ResumeReleasesWaiters(t *testing.T) {
	f := New()
	f.Suspend()
	require.True(t, f.Suspended())

	released := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			f.Wait()
			released <- struct{}{}
		}()
	}

	select {
	case <-released:
		t.Fatal("waiter released while suspended")
	case <-time.After(20 * time.Millisecond):
	}

	f.Resume()
	for i := 0; i < 2; i++ {
		select {
		case <-released:
		case <-time.After(time.Second):
			t.Fatal("waiter not released after Resume")
		}
	}
	assert.False(t, f.Suspended())
}

func TestFlag_ToggleAndRepeatedCalls(t *testing.T) {
	f := New()
	assert.True(t, f.Toggle())
	f.Suspend()
	assert.True(t, f.Suspended())
	assert.False(t, f.Toggle())
	f.Resume()
	assert.False(t, f.Suspended())

	// suspend again after a resume uses a fresh channel
	f.Suspend()
	f.Resume()
	f.Wait()
}

func TestFlag_StopReleasesAndIgnoresSuspend(t *testing.T) {
	f := New()
	f.Suspend()

	done := make(chan struct{})
	go func() {
		f.Wait()
		close(done)
	}()

	f.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not release the waiter")
	}
	assert.False(t, f.Active())

	f.Suspend()
	assert.False(t, f.Suspended())
	assert.False(t, f.Toggle())
}
