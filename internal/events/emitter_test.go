package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		event := NewGenerationEvent(TypeSubmitted, 1, "tree", "tree")

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := NewGenerationEvent(TypeCompleted, 7, "circle", "circle")
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Same(t, event, handler1.LastEvent)
		assert.Same(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		failingHandler := &MockEventHandler{HandlerError: errors.New("handler error")}
		successHandler := &MockEventHandler{}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		err := emitter.EmitEvent(context.Background(), NewGenerationEvent(TypeFailed, 2, "flower", "flower"))
		require.Error(t, err)
		assert.Equal(t, "handler error", err.Error())

		// The handler after the failing one still receives the event
		assert.Equal(t, 1, failingHandler.HandledCount)
		assert.Equal(t, 1, successHandler.HandledCount)
	})

	t.Run("handler func adapter", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		var seen []string
		emitter.RegisterHandler(EventHandlerFunc(func(_ context.Context, e *GenerationEvent) error {
			seen = append(seen, e.Type)
			return nil
		}))

		require.NoError(t, emitter.EmitEvent(context.Background(), NewGenerationEvent(TypeSubmitted, 1, "tree", "")))
		require.NoError(t, emitter.EmitEvent(context.Background(), NewGenerationEvent(TypeCancelled, 1, "tree", "")))
		assert.Equal(t, []string{TypeSubmitted, TypeCancelled}, seen)
	})
}
