// Package deadline implements the voting deadline state machine of an event.
//
// An event is Open until its voting deadline passes and the auto-decline pass
// has run; after that it is Closed. Only a correction may reopen it.
package deadline

import (
	"time"

	"github.com/moklem/tv-herren-bereich/internal/storage"
)

// AutoDeclineReason marks responses written by the system, not by a player.
const AutoDeclineReason = "Automatisch abgelehnt - Abstimmungsfrist abgelaufen"

type State int

const (
	Open State = iota
	Closed
)

func (s State) String() string {
	if s == Closed {
		return "closed"
	}
	return "open"
}

type Result struct {
	// Declined holds the players declined by this pass.
	Declined     []string
	Transitioned bool
}

// StateOf reports the state of the event. An event whose deadline passed but
// which has not been processed yet is still Open: the pass is due.
func StateOf(e *storage.Event) State {
	if e.AutoDeclineProcessed {
		return Closed
	}
	return Open
}

// Due reports whether the Open -> Closed transition fires at now.
func Due(e *storage.Event, now time.Time) bool {
	if e.AutoDeclineProcessed || e.VotingDeadline == nil {
		return false
	}
	return !now.Before(*e.VotingDeadline)
}

// Process runs the auto-decline pass on e if it is due. Every invited player
// without an answer gets a declined response with AutoDeclineReason. Open
// access events have no invite list, so they close without declines.
// Calling it again on a closed event changes nothing.
func Process(e *storage.Event, now time.Time) Result {
	if !Due(e, now) {
		return Result{}
	}
	var declined []string
	if !e.IsOpenAccess {
		for _, player := range e.InvitedPlayers {
			if r, ok := e.Response(player); ok && r.Status != storage.StatusPending {
				continue
			}
			e.SetResponse(storage.Response{
				PlayerID:    player,
				Status:      storage.StatusDeclined,
				Reason:      AutoDeclineReason,
				RespondedAt: now.UTC(),
			})
			declined = append(declined, player)
		}
	}
	e.DeclinedPlayers = e.DeclinedSet()
	e.AutoDeclineProcessed = true
	return Result{Declined: declined, Transitioned: true}
}

// Reopen is the only Closed -> Open transition. It is reserved for corrections.
func Reopen(e *storage.Event) bool {
	if !e.AutoDeclineProcessed {
		return false
	}
	e.AutoDeclineProcessed = false
	return true
}

func IsAutoDecline(r storage.Response) bool {
	return r.Status == storage.StatusDeclined && r.Reason == AutoDeclineReason
}
