package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"semdex/pkg/types"
)

func TestBus_FolderChanged(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.SubscribeFolderChanged(ctx)
	require.NoError(t, err)

	bus.FolderChanged("proj")

	select {
	case msg := <-msgs:
		var ev FolderChangedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, "proj", ev.Folder)
		assert.False(t, ev.At.IsZero())
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no folder change delivered")
	}
}

func TestBus_Progress(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.SubscribeProgress(ctx)
	require.NoError(t, err)

	bus.Progress(types.TaskProgress{
		Folder:  "proj",
		Phase:   types.PhaseEmbedding,
		Percent: 60,
	})

	select {
	case msg := <-msgs:
		var state types.TaskProgress
		require.NoError(t, json.Unmarshal(msg.Payload, &state))
		assert.Equal(t, "proj", state.Folder)
		assert.Equal(t, types.PhaseEmbedding, state.Phase)
		assert.Equal(t, 60, state.Percent)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no progress delivered")
	}
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer func() { _ = bus.Close() }()

	// Nothing listening; must not block or panic
	bus.FolderChanged("proj")
	bus.Progress(types.TaskProgress{Folder: "proj"})
}

func TestDiscard(t *testing.T) {
	var sink Sink = Discard{}
	sink.FolderChanged("proj")
	sink.Progress(types.TaskProgress{})
}
