package contracts

import "context"

type MessageQueue interface {
	// PublishToStream appends a payload to the stream topic.
	PublishToStream(ctx context.Context, topic string, payload []byte) error
	// SubscribeToStream blocks reading the stream via a consumer group and
	// invokes handler per entry until ctx is cancelled.
	SubscribeToStream(ctx context.Context, topic string, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error
	// AcknowledgeMessage marks a stream entry as processed for the group.
	AcknowledgeMessage(ctx context.Context, topic, conGroup, mesgID string) error
	// DeleteMessage removes a processed entry from the stream.
	DeleteMessage(ctx context.Context, topic, mesgID string) error
}
