package debounce_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smykla-labs/klinik/internal/debounce"
)

type recorder struct {
	mu     sync.Mutex
	values []int
}

func (r *recorder) record(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]int(nil), r.values...)
}

func TestDebouncer(t *testing.T) {
	t.Parallel()

	t.Run("coalesces a burst into the latest value", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		d := debounce.New(30*time.Millisecond, rec.record)

		for i := 1; i <= 5; i++ {
			require.True(t, d.Trigger(i))
		}

		assert.True(t, d.Pending())
		assert.Eventually(t, func() bool {
			return len(rec.snapshot()) == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []int{5}, rec.snapshot())
		assert.False(t, d.Pending())
	})

	t.Run("zero delay runs synchronously", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		d := debounce.New(0, rec.record)

		d.Trigger(1)
		d.Trigger(2)

		assert.Equal(t, []int{1, 2}, rec.snapshot())
		assert.False(t, d.Pending())
	})

	t.Run("flush runs the pending value now", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		d := debounce.New(time.Hour, rec.record)

		d.Trigger(1)
		d.Trigger(2)
		d.Flush()

		assert.Equal(t, []int{2}, rec.snapshot())
		assert.False(t, d.Pending())

		d.Flush()
		assert.Equal(t, []int{2}, rec.snapshot())
	})

	t.Run("cancel drops the pending value", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		d := debounce.New(10*time.Millisecond, rec.record)

		d.Trigger(1)
		d.Cancel()

		assert.False(t, d.Pending())
		assert.Never(t, func() bool {
			return len(rec.snapshot()) > 0
		}, 50*time.Millisecond, 5*time.Millisecond)
	})

	t.Run("stop rejects further triggers", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		d := debounce.New(10*time.Millisecond, rec.record)

		d.Trigger(1)
		d.Stop()

		assert.False(t, d.Trigger(2))
		assert.False(t, d.Pending())
		assert.Never(t, func() bool {
			return len(rec.snapshot()) > 0
		}, 50*time.Millisecond, 5*time.Millisecond)
	})

	t.Run("a steady stream still fires every window", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		d := debounce.New(20*time.Millisecond, rec.record)

		deadline := time.Now().Add(120 * time.Millisecond)
		for i := 0; time.Now().Before(deadline); i++ {
			d.Trigger(i)
			time.Sleep(2 * time.Millisecond)
		}

		d.Flush()

		assert.GreaterOrEqual(t, len(rec.snapshot()), 2)
	})

	t.Run("a window closing during a callback never delivers an older value", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		started := make(chan struct{})
		release := make(chan struct{})

		d := debounce.New(10*time.Millisecond, func(v int) {
			if v == 1 {
				close(started)
				<-release
			}

			rec.record(v)
		})

		// the first value is held inside the callback
		d.Trigger(1)

		go d.Flush()

		<-started

		// a second window opens and closes while the callback is held
		d.Trigger(2)
		time.Sleep(50 * time.Millisecond)

		// a newer value arrives and is flushed concurrently with the closed window
		d.Trigger(3)

		flushed := make(chan struct{})

		go func() {
			defer close(flushed)

			d.Flush()
		}()

		close(release)
		<-flushed

		assert.Eventually(t, func() bool {
			return !d.Pending()
		}, time.Second, 5*time.Millisecond)

		time.Sleep(30 * time.Millisecond)

		values := rec.snapshot()
		require.NotEmpty(t, values)
		assert.Equal(t, 1, values[0])
		assert.Equal(t, 3, values[len(values)-1])
		assert.NotContains(t, values, 2)
	})
}
