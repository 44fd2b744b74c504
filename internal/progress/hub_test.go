package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed int
}

func (s *captureSink) Consume(_ context.Context, evt Event) error {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func validEvent(stage Stage) Event {
	return Event{JobID: "job-1", TS: time.Now().UTC(), Stage: stage}
}

func TestHubDeliversToAllSinks(t *testing.T) {
	t.Parallel()
	a, b := &captureSink{}, &captureSink{}
	hub := NewHub(Config{BufferSize: 8}, a, b)

	hub.Emit(validEvent(StageJobStart))
	hub.Emit(validEvent(StageJobDone))
	require.NoError(t, hub.Close(context.Background()))

	require.Equal(t, 2, a.count())
	require.Equal(t, 2, b.count())
	require.Equal(t, 1, a.closed)
	require.Equal(t, 1, b.closed)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	hub := NewHub(Config{BufferSize: 8}, sink)

	hub.Emit(Event{})
	hub.Emit(validEvent("BOGUS"))
	require.NoError(t, hub.Close(context.Background()))
	require.Zero(t, sink.count())
}

func TestHubEmitAfterClose(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	hub := NewHub(Config{BufferSize: 8}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(validEvent(StageJobStart))
	require.Zero(t, sink.count())
}

func TestHubCloseIdempotent(t *testing.T) {
	t.Parallel()
	hub := NewHub(Config{}, &captureSink{})
	require.NoError(t, hub.Close(context.Background()))
	require.NoError(t, hub.Close(context.Background()))
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validEvent(StageJobStart).Validate())
	require.Error(t, Event{TS: time.Now(), Stage: StageJobStart}.Validate())
	require.Error(t, Event{JobID: "x", Stage: StageJobStart}.Validate())
	require.Error(t, validEvent("NOPE").Validate())

	bookDone := validEvent(StageBookDone)
	require.Error(t, bookDone.Validate())
	bookDone.BookID = "5"
	require.NoError(t, bookDone.Validate())
}
