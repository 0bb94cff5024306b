package storage

import (
	"sort"
	"time"
)

type ResponseStatus string

const (
	StatusAccepted ResponseStatus = "accepted"
	StatusDeclined ResponseStatus = "declined"
	StatusPending  ResponseStatus = "pending"
)

func (s ResponseStatus) Valid() bool {
	switch s {
	case StatusAccepted, StatusDeclined, StatusPending:
		return true
	}
	return false
}

type EventType string

const (
	TypeGame     EventType = "Game"
	TypeTraining EventType = "Training"
	TypeOther    EventType = "Other"
)

type Response struct {
	PlayerID    string         `json:"playerId" bson:"player"`
	Status      ResponseStatus `json:"status" bson:"status"`
	Reason      string         `json:"reason,omitempty" bson:"reason,omitempty"`
	RespondedAt time.Time      `json:"respondedAt" bson:"timestamp"`
}

type Reminder struct {
	Hours   int `json:"hours" bson:"hours" yaml:"hours" validate:"min:0|max:720"`
	Minutes int `json:"minutes" bson:"minutes" yaml:"minutes" validate:"min:0|max:59"`
}

func (r Reminder) Before() time.Duration {
	return time.Duration(r.Hours)*time.Hour + time.Duration(r.Minutes)*time.Minute
}

type NotificationSettings struct {
	Enabled       bool       `json:"enabled" bson:"enabled" yaml:"enabled"`
	ReminderTimes []Reminder `json:"reminderTimes,omitempty" bson:"reminderTimes,omitempty" yaml:"reminderTimes" validate:"nested"`
	CustomMessage string     `json:"customMessage,omitempty" bson:"customMessage,omitempty" yaml:"customMessage" validate:"maxlen:500"`
}

type Event struct {
	ID                   string               `json:"id" bson:"_id"`
	Title                string               `json:"title" bson:"title"`
	Type                 EventType            `json:"type" bson:"type"`
	Description          string               `json:"description" bson:"description"`
	Location             string               `json:"location" bson:"location"`
	TeamID               string               `json:"teamId,omitempty" bson:"organizingTeam,omitempty"`
	StartTime            time.Time            `json:"startTime" bson:"startTime"`
	EndTime              time.Time            `json:"endTime" bson:"endTime"`
	VotingDeadline       *time.Time           `json:"votingDeadline,omitempty" bson:"votingDeadline,omitempty"`
	InvitedPlayers       []string             `json:"invitedPlayers" bson:"invitedPlayers"`
	IsOpenAccess         bool                 `json:"isOpenAccess" bson:"isOpenAccess"`
	DeclinedPlayers      []string             `json:"declinedPlayers" bson:"declinedPlayers"`
	PlayerResponses      []Response           `json:"playerResponses" bson:"playerResponses"`
	AutoDeclineProcessed bool                 `json:"autoDeclineProcessed" bson:"autoDeclineProcessed"`
	FixesApplied         []string             `json:"_fixesApplied" bson:"_fixesApplied"`
	Notification         NotificationSettings `json:"notificationSettings" bson:"notificationSettings"`
	Version              int64                `json:"version" bson:"version"`
	CreatedAt            time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt" bson:"updatedAt"`
}

func (e *Event) IsInvited(playerID string) bool {
	if e.IsOpenAccess {
		return true
	}
	for _, p := range e.InvitedPlayers {
		if p == playerID {
			return true
		}
	}
	return false
}

// Response returns the player's response and whether one exists.
func (e *Event) Response(playerID string) (Response, bool) {
	for _, r := range e.PlayerResponses {
		if r.PlayerID == playerID {
			return r, true
		}
	}
	return Response{}, false
}

// SetResponse replaces the player's response or appends a new one.
func (e *Event) SetResponse(r Response) {
	for i := range e.PlayerResponses {
		if e.PlayerResponses[i].PlayerID == r.PlayerID {
			e.PlayerResponses[i] = r
			return
		}
	}
	e.PlayerResponses = append(e.PlayerResponses, r)
}

// RemoveResponses drops every response matching the predicate and returns the
// affected player ids.
func (e *Event) RemoveResponses(match func(Response) bool) []string {
	var removed []string
	kept := e.PlayerResponses[:0]
	for _, r := range e.PlayerResponses {
		if match(r) {
			removed = append(removed, r.PlayerID)
			continue
		}
		kept = append(kept, r)
	}
	e.PlayerResponses = kept
	return removed
}

func (e *Event) HasFix(tag string) bool {
	for _, f := range e.FixesApplied {
		if f == tag {
			return true
		}
	}
	return false
}

// AddFix appends tag to the corrections ledger. The ledger is append-only.
func (e *Event) AddFix(tag string) {
	if !e.HasFix(tag) {
		e.FixesApplied = append(e.FixesApplied, tag)
	}
}

// Clone returns a deep copy, so callers can mutate it without touching stored state.
func (e Event) Clone() Event {
	c := e
	if e.VotingDeadline != nil {
		d := *e.VotingDeadline
		c.VotingDeadline = &d
	}
	c.InvitedPlayers = cloneStrings(e.InvitedPlayers)
	c.DeclinedPlayers = cloneStrings(e.DeclinedPlayers)
	c.FixesApplied = cloneStrings(e.FixesApplied)
	if e.PlayerResponses != nil {
		c.PlayerResponses = make([]Response, len(e.PlayerResponses))
		copy(c.PlayerResponses, e.PlayerResponses)
	}
	if e.Notification.ReminderTimes != nil {
		c.Notification.ReminderTimes = make([]Reminder, len(e.Notification.ReminderTimes))
		copy(c.Notification.ReminderTimes, e.Notification.ReminderTimes)
	}
	return c
}

// DeclinedSet derives the declined player ids from the responses, sorted.
func (e *Event) DeclinedSet() []string {
	declined := make([]string, 0)
	for _, r := range e.PlayerResponses {
		if r.Status == StatusDeclined {
			declined = append(declined, r.PlayerID)
		}
	}
	sort.Strings(declined)
	return declined
}

// Normalize enforces the record invariants before a write: one response per
// player (last wins), and DeclinedPlayers rebuilt from the responses. It reports
// whether the stored DeclinedPlayers disagreed with the responses.
func (e *Event) Normalize() (violation bool) {
	seen := make(map[string]int, len(e.PlayerResponses))
	unique := make([]Response, 0, len(e.PlayerResponses))
	for _, r := range e.PlayerResponses {
		if i, ok := seen[r.PlayerID]; ok {
			unique[i] = r
			violation = true
			continue
		}
		seen[r.PlayerID] = len(unique)
		unique = append(unique, r)
	}
	e.PlayerResponses = unique

	derived := e.DeclinedSet()
	if !sameSet(derived, e.DeclinedPlayers) {
		violation = true
	}
	e.DeclinedPlayers = derived

	if e.InvitedPlayers == nil || e.IsOpenAccess {
		e.InvitedPlayers = make([]string, 0)
	}
	if e.FixesApplied == nil {
		e.FixesApplied = make([]string, 0)
	}
	return violation
}

func sameSet(sorted, other []string) bool {
	if len(sorted) != len(other) {
		return false
	}
	b := append([]string(nil), other...)
	sort.Strings(b)
	for i := range sorted {
		if sorted[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
