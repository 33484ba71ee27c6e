package events

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversOverRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	publisher := NewBus(client, "codelab:events", nil, zerolog.Nop())
	subscriber := NewBus(client, "codelab:events", nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	subscriber.Subscribe(ctx, func(event Event) { received <- event })

	require.Eventually(t, func() bool {
		return len(mini.PubSubChannels("codelab:events:grading")) == 1
	}, time.Second, 10*time.Millisecond)

	score := 100.0
	require.NoError(t, publisher.Publish(ctx, Event{
		Type:         TypeSubmissionFinalized,
		ExerciseID:   5,
		SubmissionID: 42,
		Score:        &score,
	}))

	select {
	case event := <-received:
		require.Equal(t, TypeSubmissionFinalized, event.Type)
		require.Equal(t, publisher.NodeID(), event.Source)
		require.NotEmpty(t, event.ID)
		require.False(t, event.OccurredAt.IsZero())
		require.Equal(t, uint(42), event.SubmissionID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusWithoutTransportsIsNoop(t *testing.T) {
	bus := NewBus(nil, "", nil, zerolog.Nop())
	require.NoError(t, bus.Publish(context.Background(), Event{Type: TypeExerciseChanged}))
	bus.Subscribe(context.Background(), func(Event) { t.Fatal("unexpected delivery") })
}
