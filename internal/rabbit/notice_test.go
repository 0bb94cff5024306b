package rabbit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	bodies [][]byte
	err    error
}

func (p *publisherMock) Publish(body []byte) error {
	p.bodies = append(p.bodies, body)
	return p.err
}

func TestNotifier(t *testing.T) {
	p := &publisherMock{}
	n := NewNotifier(p)
	notice := app.AutoDeclineNotice{
		EventID:   "e1",
		Title:     "Spiel gegen SV Nord",
		StartTime: time.Date(2025, 4, 5, 16, 0, 0, 0, time.UTC),
		Players:   []string{"p2", "p3"},
		At:        time.Date(2025, 4, 3, 16, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.NotifyAutoDecline(context.Background(), notice))
	require.Len(t, p.bodies, 1)

	decoded, err := DecodeNotice(p.bodies[0])
	require.NoError(t, err)
	require.Equal(t, notice, decoded)

	p.err = errors.New("closed")
	require.Error(t, n.NotifyAutoDecline(context.Background(), notice))
}

func TestDecodeNoticeErrors(t *testing.T) {
	_, err := DecodeNotice([]byte("{"))
	require.Error(t, err)
	_, err = DecodeNotice([]byte(`{"title":"x"}`))
	require.Error(t, err)
}

func TestPublishWithoutConnection(t *testing.T) {
	p := New(Config{Host: "127.0.0.1", Port: 5672, Queue: "events.auto-decline"})
	var _ Publisher = p
	require.Error(t, p.Publish([]byte("{}")))
	p.Close()
}
