package notify

import (
	"context"
	"time"

	commonredis "davinci-allocation/internal/common/redis"
	"davinci-allocation/internal/domain"

	"go.uber.org/zap"
)

// StreamNotifier publishes confirmation events to a Redis stream.
type StreamNotifier struct {
	client *commonredis.Client
	stream string
	logger *zap.Logger
	now    func() time.Time
}

func NewStreamNotifier(client *commonredis.Client, stream string, logger *zap.Logger) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, logger: logger, now: time.Now}
}

func (n *StreamNotifier) NotifyConfirmed(ctx context.Context, allocation domain.Allocation, teacher domain.TeacherInfo) error {
	event := NewConfirmation(allocation, teacher, n.now())
	id, err := commonredis.PublishJSONToStream(ctx, n.client, n.stream, event)
	if err != nil {
		n.logger.Error("Failed to publish confirmation to stream",
			zap.String("stream", n.stream),
			zap.String("allocation_id", allocation.ID),
			zap.Error(err),
		)
		return failed("stream", err)
	}
	n.logger.Debug("Confirmation published to stream",
		zap.String("stream", n.stream),
		zap.String("message_id", id),
	)
	return nil
}
