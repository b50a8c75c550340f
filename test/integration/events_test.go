package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/events"
)

// TestPublishWakesListener pushes an announcement through PostgreSQL NOTIFY
// and expects it on the listener's wake channel. Start issues LISTEN before
// returning, so the publish below cannot race the subscription.
func TestPublishWakesListener(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	l := events.NewListener(env.DB.ConnString())
	require.NoError(t, l.Start(ctx))
	t.Cleanup(func() { l.Stop(context.Background()) })

	pub := events.NewPublisher(env.DB.Pool())
	require.NoError(t, pub.ItemsCollected(ctx, "nikkei_asia_tech", 3))

	select {
	case got := <-l.Notifications():
		assert.Equal(t, "nikkei_asia_tech", got.SourceID)
		assert.Equal(t, 3, got.Count)
	case <-time.After(5 * time.Second):
		t.Fatal("no wake within 5s of publishing")
	}
}

// TestStopClosesNotifications verifies that consumers ranging over the wake
// channel terminate once the listener stops.
func TestStopClosesNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	l := events.NewListener(env.DB.ConnString())
	require.NoError(t, l.Start(ctx))
	l.Stop(ctx)

	_, open := <-l.Notifications()
	assert.False(t, open, "wake channel should close on stop")
}
