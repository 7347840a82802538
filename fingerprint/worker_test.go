package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listpreload"
)

// mapRecorder mimics the store's duplicate check.
type mapRecorder struct {
	mu     sync.Mutex
	owners map[int32]string
}

func (r *mapRecorder) Record(id string, fp int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owners == nil {
		r.owners = map[int32]string{}
	}
	if owner, ok := r.owners[fp]; ok && owner != id {
		return fmt.Errorf("%w: %s", listpreload.ErrDuplicateFingerprint, owner)
	}
	r.owners[fp] = id
	return nil
}

func (r *mapRecorder) owner(fp int32) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owners[fp]
}

// lengthPrimitive fingerprints by data length, so equal-length sources collide.
var lengthPrimitive = PrimitiveFunc(func(data []byte) (int32, error) {
	return int32(len(data)), nil
})

var echoSource = SourceFunc(func(_ context.Context, req *listpreload.Request) ([]byte, error) {
	if req.Source == "broken" {
		return nil, errors.New("unreachable")
	}
	return []byte(req.Source), nil
})

func triggered(t *testing.T) *listpreload.Cell {
	t.Helper()

	cell := &listpreload.Cell{}
	require.Equal(t, listpreload.Trigger, cell.Guard())
	return cell
}

func runWorker(t *testing.T, w *Worker) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func TestWorkerCompletesCell(t *testing.T) {
	t.Parallel()

	rec := &mapRecorder{}
	w, err := NewWorker(Options{Workers: 1, Primitive: lengthPrimitive, Source: echoSource, Recorder: rec})
	require.NoError(t, err)
	runWorker(t, w)

	cell := triggered(t)
	require.True(t, w.Submit("a", &listpreload.Request{Source: "abcd"}, cell))

	require.Eventually(t, func() bool { return cell.State() == listpreload.Done }, time.Second, time.Millisecond)
	fp, ok := cell.Fingerprint()
	require.True(t, ok)
	assert.Equal(t, int32(4), fp)
	assert.Equal(t, uint64(1), w.Stats().Computed)
	assert.Eventually(t, func() bool { return rec.owner(4) == "a" }, time.Second, time.Millisecond)
	assert.Eventually(t, w.Idle, time.Second, time.Millisecond)
}

func TestWorkerReportsDuplicate(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var dupes []string

	w, err := NewWorker(Options{
		Workers:   1,
		Primitive: lengthPrimitive,
		Source:    echoSource,
		Recorder:  &mapRecorder{},
		OnDuplicate: func(id string, fp int32) {
			mu.Lock()
			defer mu.Unlock()
			dupes = append(dupes, fmt.Sprintf("%s:%d", id, fp))
		},
	})
	require.NoError(t, err)

	first, second := triggered(t), triggered(t)
	require.True(t, w.Submit("first", &listpreload.Request{Source: "same"}, first))
	require.True(t, w.Submit("second", &listpreload.Request{Source: "also"}, second))
	runWorker(t, w)

	require.Eventually(t, func() bool { return w.Stats().Duplicates == 1 }, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"second:4"}, dupes)
	mu.Unlock()

	// The duplicate still has its fingerprint
	assert.Equal(t, listpreload.Done, second.State())
}

func TestWorkerFailureResetsCell(t *testing.T) {
	t.Parallel()

	w, err := NewWorker(Options{Workers: 1, Primitive: lengthPrimitive, Source: echoSource})
	require.NoError(t, err)
	runWorker(t, w)

	cell := triggered(t)
	require.True(t, w.Submit("x", &listpreload.Request{Source: "broken"}, cell))

	require.Eventually(t, func() bool { return w.Stats().Failed == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, listpreload.NotStarted, cell.State())
	assert.Equal(t, listpreload.Trigger, cell.Guard(), "a failed computation may be triggered again")
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	w, err := NewWorker(Options{QueueSize: 1, Primitive: lengthPrimitive, Source: echoSource})
	require.NoError(t, err)

	kept, dropped := triggered(t), triggered(t)
	assert.True(t, w.Submit("a", &listpreload.Request{Source: "a"}, kept))
	assert.False(t, w.Submit("b", &listpreload.Request{Source: "b"}, dropped))

	assert.Equal(t, listpreload.InProgress, kept.State())
	assert.Equal(t, listpreload.NotStarted, dropped.State())
	assert.Equal(t, uint64(1), w.Stats().Dropped)
	assert.False(t, w.Idle())
}

func TestWorkerClose(t *testing.T) {
	t.Parallel()

	w, err := NewWorker(Options{Primitive: lengthPrimitive, Source: echoSource})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), listpreload.ErrClosed)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after Close")
	}

	cell := triggered(t)
	assert.False(t, w.Submit("late", &listpreload.Request{Source: "late"}, cell))
	assert.Equal(t, listpreload.NotStarted, cell.State())
}

func TestWorkerStopResetsQueuedCells(t *testing.T) {
	t.Parallel()

	running := make(chan struct{}, 1)
	blocking := SourceFunc(func(ctx context.Context, _ *listpreload.Request) ([]byte, error) {
		running <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	w, err := NewWorker(Options{Workers: 1, Primitive: lengthPrimitive, Source: blocking})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	busy, queued := triggered(t), triggered(t)
	require.True(t, w.Submit("busy", &listpreload.Request{Source: "a"}, busy))
	<-running
	require.True(t, w.Submit("queued", &listpreload.Request{Source: "b"}, queued))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	require.NoError(t, w.Close())

	assert.Equal(t, listpreload.NotStarted, busy.State())
	assert.Equal(t, listpreload.NotStarted, queued.State())
	assert.Equal(t, listpreload.Trigger, queued.Guard(), "a discarded computation may be triggered again")
	assert.True(t, w.Idle())
}

func TestNewWorkerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWorker(Options{Source: echoSource})
	assert.Error(t, err)
	_, err = NewWorker(Options{Primitive: DHash{}})
	assert.Error(t, err)
}
