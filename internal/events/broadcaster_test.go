package events

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("fans out to every subscriber", func(t *testing.T) {
		b := NewBroadcaster(logger)
		ch1, cancel1 := b.Subscribe(4)
		defer cancel1()
		ch2, cancel2 := b.Subscribe(4)
		defer cancel2()

		event := deliveryEvent()
		require.NoError(t, b.HandleEvent(context.Background(), event))

		assert.Equal(t, event.ID, (<-ch1).ID)
		assert.Equal(t, event.ID, (<-ch2).ID)
	})

	t.Run("slow subscriber drops instead of blocking", func(t *testing.T) {
		b := NewBroadcaster(logger)
		ch, cancel := b.Subscribe(1)
		defer cancel()

		for i := 0; i < 5; i++ {
			require.NoError(t, b.HandleEvent(context.Background(), deliveryEvent()))
		}
		assert.Len(t, ch, 1)
	})

	t.Run("cancel unsubscribes and closes", func(t *testing.T) {
		b := NewBroadcaster(logger)
		ch, cancel := b.Subscribe(1)
		assert.Equal(t, 1, b.Subscribers())

		cancel()
		cancel()
		assert.Equal(t, 0, b.Subscribers())

		_, open := <-ch
		assert.False(t, open)

		// Emitting after cancel must not panic
		assert.NoError(t, b.HandleEvent(context.Background(), deliveryEvent()))
	})
}
