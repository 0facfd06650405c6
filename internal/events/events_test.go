package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNATSPublisher_Publish(t *testing.T) {
	server := startTestNATSServer(t)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 8)
	s, err := sub.ChanSubscribe("seoflow.runs.>", msgs)
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe() }()
	require.NoError(t, sub.Flush())

	pub, err := Connect(server.ClientURL(), "")
	require.NoError(t, err)
	defer func() { _ = pub.Close() }()

	ev := Event{Type: StepFinished, RunID: "run-1", WorkflowType: "content_creation", Agent: "keyword_research", StepIndex: 1, StepStatus: "completed"}
	require.NoError(t, pub.Publish(context.Background(), ev))

	select {
	case msg := <-msgs:
		assert.Equal(t, "seoflow.runs.run-1.step", msg.Subject)
		var got Event
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, "keyword_research", got.Agent)
		assert.Equal(t, StepFinished, got.Type)
		assert.False(t, got.Timestamp.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}

func TestNATSPublisher_CustomPrefix(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	pub := NewNATSPublisher(nc, "acme.seo.")
	assert.Equal(t, "acme.seo.abc.completed", pub.Subject(Event{RunID: "abc", Type: RunCompleted}))
	// borrowed connection stays open
	require.NoError(t, pub.Close())
	assert.True(t, nc.IsConnected())
}

func TestNATSPublisher_Errors(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)

	pub := NewNATSPublisher(nc, "")
	assert.Error(t, pub.Publish(context.Background(), Event{Type: RunStarted}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, Event{Type: RunStarted, RunID: "x"}), context.Canceled)

	nc.Close()
	assert.Error(t, pub.Publish(context.Background(), Event{Type: RunStarted, RunID: "x"}))
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
