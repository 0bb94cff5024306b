package internalhttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/moklem/tv-herren-bereich/internal/ics"
	"github.com/moklem/tv-herren-bereich/internal/schedule"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/validator"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	log "github.com/sirupsen/logrus"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	errInternalServerError = "internal server error"
	errIncorrectBody       = "incorrect request body"
	errIncorrectRange      = "from and to must be RFC 3339 times, or day a YYYY-MM-DD date"

	dayLayout = "2006-01-02"

	calendarPast   = 30 * 24 * time.Hour
	calendarFuture = 365 * 24 * time.Hour
)

type errorResponse struct {
	Error string `json:"error"`
}

type draftFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type createEventsResponse struct {
	IDs      []string       `json:"ids"`
	Failures []draftFailure `json:"failures"`
}

type responseRequest struct {
	PlayerID string                 `json:"playerId"`
	Status   storage.ResponseStatus `json:"status"`
	Reason   string                 `json:"reason"`
}

type scheduleOptions struct {
	TeamID          string                       `json:"teamId"`
	DurationMinutes int                          `json:"durationMinutes"`
	VotingLeadHours int                          `json:"votingLeadHours"`
	InvitedPlayers  []string                     `json:"invitedPlayers"`
	IsOpenAccess    bool                         `json:"isOpenAccess"`
	Notification    storage.NotificationSettings `json:"notificationSettings"`
}

type scheduleRequest struct {
	Team     string             `json:"team"`
	Fixtures []schedule.Fixture `json:"fixtures"`
	Options  scheduleOptions    `json:"options"`
}

type trainingRequest struct {
	Series  schedule.TrainingSeries `json:"series"`
	Options scheduleOptions         `json:"options"`
}

func (o scheduleOptions) options() schedule.Options {
	return schedule.Options{
		TeamID:         o.TeamID,
		Duration:       time.Duration(o.DurationMinutes) * time.Minute,
		VotingLead:     time.Duration(o.VotingLeadHours) * time.Hour,
		InvitedPlayers: o.InvitedPlayers,
		IsOpenAccess:   o.IsOpenAccess,
		Notification:   o.Notification,
	}
}

func (s *Server) createEvents(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var drafts []app.Draft
	if err := json.NewDecoder(r.Body).Decode(&drafts); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errIncorrectBody})
		return
	}
	s.create(w, r, drafts)
}

func (s *Server) createFromSchedule(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errIncorrectBody})
		return
	}
	drafts, err := schedule.Derive(req.Fixtures, req.Team, req.Options.options(), s.app.Zone)
	if err != nil {
		writeError(w, err)
		return
	}
	s.create(w, r, drafts)
}

func (s *Server) createTrainings(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req trainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errIncorrectBody})
		return
	}
	drafts, err := schedule.Trainings(req.Series, req.Options.options(), s.app.Zone)
	if err != nil {
		writeError(w, err)
		return
	}
	s.create(w, r, drafts)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, drafts []app.Draft) {
	ids, failures := s.app.CreateEvents(r.Context(), drafts)
	resp := createEventsResponse{IDs: ids, Failures: make([]draftFailure, 0, len(failures))}
	for _, f := range failures {
		resp.Failures = append(resp.Failures, draftFailure{Index: f.Index, Error: f.Err.Error()})
	}
	status := http.StatusCreated
	if len(ids) == 0 && len(failures) > 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	var events []storage.Event
	var err error
	if day := q.Get("day"); day != "" {
		date, perr := time.Parse(dayLayout, day)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: errIncorrectRange})
			return
		}
		// the date names a day in the app's zone, not a UTC instant
		events, err = s.app.EventsOnDate(r.Context(), zone.Civil{Year: date.Year(), Month: date.Month(), Day: date.Day()})
	} else {
		from, perr := time.Parse(time.RFC3339, q.Get("from"))
		to, terr := time.Parse(time.RFC3339, q.Get("to"))
		if perr != nil || terr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: errIncorrectRange})
			return
		}
		events, err = s.app.ListEvents(r.Context(), from, to)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) exportCalendar(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	now := s.now()
	events, err := s.app.ListEvents(r.Context(), now.Add(-calendarPast), now.Add(calendarFuture))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := ics.Export(w, events); err != nil {
		log.Errorf("failed to write calendar: %v", err)
	}
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request, params map[string]string) {
	e, err := s.app.GetEvent(r.Context(), params["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) recordResponse(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var req responseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errIncorrectBody})
		return
	}
	if err := s.app.RecordResponse(r.Context(), params["id"], req.PlayerID, req.Status, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runAutoDecline(w http.ResponseWriter, r *http.Request, params map[string]string) {
	res, err := s.app.RunAutoDecline(r.Context(), params["id"], s.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) checkHealth(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": healthpb.HealthCheckResponse_SERVING.String()})
		return
	}
	resp, err := s.health.Check(r.Context(), &healthpb.HealthCheckRequest{})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": resp.GetStatus().String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": resp.GetStatus().String()})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFoundEvent), errors.Is(err, storage.ErrPlayerNotInvited):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrIncorrectStatus), errors.Is(err, storage.ErrIncorrectEventTime),
		errors.Is(err, zone.ErrIncorrectCivil), errors.Is(err, schedule.ErrNoTeam),
		errors.Is(err, schedule.ErrIncorrectRule):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		log.Errorf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errInternalServerError})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}
