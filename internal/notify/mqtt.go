package notify

import (
	"context"
	"encoding/json"
	"time"

	"davinci-allocation/internal/domain"

	"go.uber.org/zap"
)

// Publisher the subset of the MQTT client used for confirmations.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTNotifier publishes confirmation events to an MQTT topic (QoS 1, not retained).
type MQTTNotifier struct {
	publisher Publisher
	topic     string
	logger    *zap.Logger
	now       func() time.Time
}

func NewMQTTNotifier(publisher Publisher, topic string, logger *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{publisher: publisher, topic: topic, logger: logger, now: time.Now}
}

func (n *MQTTNotifier) NotifyConfirmed(_ context.Context, allocation domain.Allocation, teacher domain.TeacherInfo) error {
	payload, err := json.Marshal(NewConfirmation(allocation, teacher, n.now()))
	if err != nil {
		return failed("mqtt", err)
	}
	if err := n.publisher.Publish(n.topic, 1, false, payload); err != nil {
		n.logger.Error("Failed to publish confirmation to MQTT",
			zap.String("topic", n.topic),
			zap.String("allocation_id", allocation.ID),
			zap.Error(err),
		)
		return failed("mqtt", err)
	}
	return nil
}
