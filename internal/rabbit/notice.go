package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moklem/tv-herren-bereich/internal/app"
)

type Publisher interface {
	Publish(body []byte) error
}

// Notifier publishes auto-decline notices as JSON messages.
type Notifier struct {
	publisher Publisher
}

func NewNotifier(p Publisher) *Notifier {
	return &Notifier{publisher: p}
}

func (n *Notifier) NotifyAutoDecline(_ context.Context, notice app.AutoDeclineNotice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode notice for event %q: %w", notice.EventID, err)
	}
	return n.publisher.Publish(data)
}

// DecodeNotice reads a message published by Notifier.
func DecodeNotice(body []byte) (app.AutoDeclineNotice, error) {
	var notice app.AutoDeclineNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return app.AutoDeclineNotice{}, fmt.Errorf("failed to parse notice: %w", err)
	}
	if notice.EventID == "" {
		return app.AutoDeclineNotice{}, fmt.Errorf("notice without event id")
	}
	return notice, nil
}
