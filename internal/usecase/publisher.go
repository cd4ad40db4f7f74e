package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/jetstream"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
)

// StatusPublisher announces conversation status transitions.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event model.StatusEvent) error
}

// NATSStatusPublisher publishes StatusEvent JSON on <prefix>.<status>.
type NATSStatusPublisher struct {
	client        jetstream.ClientInterface
	subjectPrefix string
}

var _ StatusPublisher = (*NATSStatusPublisher)(nil)

func NewNATSStatusPublisher(client jetstream.ClientInterface, subjectPrefix string) *NATSStatusPublisher {
	return &NATSStatusPublisher{client: client, subjectPrefix: subjectPrefix}
}

// Subject returns the subject an event with status is published on.
func (p *NATSStatusPublisher) Subject(status model.ConversationStatus) string {
	return p.subjectPrefix + "." + string(status)
}

// PublishStatus sends one event. The message id is derived from the conversation
// and status so JetStream drops duplicates of the same transition.
func (p *NATSStatusPublisher) PublishStatus(ctx context.Context, event model.StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		observer.IncStatusEventPublished(string(event.Status), err)
		return apperrors.NewFatal(err, "marshal status event for %s", event.ConversationID)
	}

	subject := p.Subject(event.Status)
	headers := map[string]string{
		jetstream.MsgIDHeader: fmt.Sprintf("%s:%s", event.ConversationID, event.Status),
	}

	err = p.client.Publish(ctx, subject, data, headers)
	observer.IncStatusEventPublished(string(event.Status), err)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to publish status event",
			zap.String("subject", subject),
			zap.String("conversation_id", event.ConversationID),
			zap.Error(err))
		return apperrors.NewRetryable(err, "publish status event for %s", event.ConversationID)
	}

	logger.FromContext(ctx).Debug("Published status event",
		zap.String("subject", subject),
		zap.String("conversation_id", event.ConversationID))
	return nil
}
