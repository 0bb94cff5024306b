package app

import (
	"context"
	"fmt"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	log "github.com/sirupsen/logrus"
)

// RecordResponse upserts the player's answer. On events with an invite list only
// invited players may answer. DeclinedPlayers follows from the stored responses
// and is never set here.
func (a *App) RecordResponse(ctx context.Context, eventID, playerID string, status storage.ResponseStatus, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("status %q: %w", status, storage.ErrIncorrectStatus)
	}
	if playerID == "" {
		return fmt.Errorf("empty player: %w", storage.ErrPlayerNotInvited)
	}
	if status != storage.StatusDeclined {
		reason = ""
	}

	_, err := a.update(ctx, eventID, func(e *storage.Event) error {
		if !e.IsInvited(playerID) {
			return fmt.Errorf("player %q, event %q: %w", playerID, eventID, storage.ErrPlayerNotInvited)
		}
		e.SetResponse(storage.Response{
			PlayerID:    playerID,
			Status:      status,
			Reason:      reason,
			RespondedAt: a.now().UTC(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"event": eventID, "player": playerID, "status": status}).Debug("response recorded")
	return nil
}
