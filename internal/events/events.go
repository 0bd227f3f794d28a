package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"semdex/pkg/types"
)

// Topics carried by the bus
const (
	TopicFolderChanged = "folder.changed"
	TopicProgress      = "indexing.progress"
)

// Sink receives the pipeline's outward signals
type Sink interface {
	// FolderChanged signals that a folder's index was rebuilt
	FolderChanged(folder string)

	// Progress publishes one full progress state
	Progress(state types.TaskProgress)
}

// FolderChangedEvent is the payload of TopicFolderChanged messages
type FolderChangedEvent struct {
	Folder string    `json:"folder"`
	At     time.Time `json:"at"`
}

// Bus implements Sink over an in-process watermill pub/sub. Publishing
// never blocks the pipeline: failures are logged and dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    *zap.Logger
}

// NewBus creates an in-process event bus
func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, newLoggerAdapter(log)),
		log: log,
	}
}

func (b *Bus) FolderChanged(folder string) {
	payload, err := json.Marshal(FolderChangedEvent{Folder: folder, At: time.Now()})
	if err != nil {
		b.log.Warn("failed to encode folder change", zap.String("folder", folder), zap.Error(err))
		return
	}
	b.publish(TopicFolderChanged, payload)
}

func (b *Bus) Progress(state types.TaskProgress) {
	payload, err := json.Marshal(state)
	if err != nil {
		b.log.Warn("failed to encode progress", zap.String("folder", state.Folder), zap.Error(err))
		return
	}
	b.publish(TopicProgress, payload)
}

func (b *Bus) publish(topic string, payload []byte) {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		b.log.Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}

// SubscribeFolderChanged delivers folder change events until ctx ends
func (b *Bus) SubscribeFolderChanged(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicFolderChanged)
}

// SubscribeProgress delivers full progress states until ctx ends
func (b *Bus) SubscribeProgress(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicProgress)
}

// Close shuts the bus down, closing all subscriber channels
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Discard is a Sink that drops every signal, for tests
type Discard struct{}

func (Discard) FolderChanged(string)        {}
func (Discard) Progress(types.TaskProgress) {}
