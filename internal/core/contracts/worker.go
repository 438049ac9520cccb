package contracts

import "context"

type AsyncWorker interface {
	// Run starts the consumer loop on the message stream and blocks until
	// ctx is cancelled.
	Run(ctx context.Context, topic string) error
	// ProcessMessage persists one queued message, bumps recipient unread
	// counters and fans the result out.
	ProcessMessage(ctx context.Context, msgID string, rawData []byte) error
}
