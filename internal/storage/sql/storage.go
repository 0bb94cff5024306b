package sqlstorage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	log "github.com/sirupsen/logrus"
)

var ErrConnectionFailed = errors.New("failed to connect")

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	dbErrUniqueViolation = "23505"
)

//go:embed migrations
var migrations embed.FS

const eventColumns = "id, title, type, description, location, team_id, start_timestamp, end_timestamp, " +
	"voting_deadline, invited_players, is_open_access, declined_players, player_responses, " +
	"auto_decline_processed, fixes_applied, notification, version, created_at, updated_at"

type Config struct {
	Driver   string
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type Storage struct {
	config Config
	db     *sqlx.DB
	now    func() time.Time
}

func New(config Config) *Storage {
	if config.Driver == "" {
		config.Driver = DriverPostgres
	}
	return &Storage{config: config, now: time.Now}
}

func (s *Storage) dsn() string {
	if s.config.Driver == DriverSQLite {
		return s.config.Database
	}
	return fmt.Sprintf(
		"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
		s.config.Host, s.config.Port, s.config.Database, s.config.Username, s.config.Password)
}

func (s *Storage) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, s.config.Driver, s.dsn())
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	if s.config.Driver == DriverSQLite {
		// one connection keeps :memory: databases shared and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err := applyMigrations(ctx, db, migrations, "migrations/"+dialectDir(s.config.Driver)); err != nil {
		db.Close()
		return fmt.Errorf("failed to migrate: %w", err)
	}
	s.db = db
	return nil
}

func dialectDir(driver string) string {
	if driver == DriverSQLite {
		return "sqlite"
	}
	return "postgres"
}

func (s *Storage) Close(_ context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Storage) AddEvent(ctx context.Context, e *storage.Event) error {
	if err := storage.ValidateTimes(e); err != nil {
		return fmt.Errorf("event end time should be after of start time: %w", err)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	storage.PrepareNew(e, s.now())

	r, err := toRow(*e)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx,
		"INSERT INTO events("+eventColumns+") VALUES(:id, :title, :type, :description, :location, :team_id, "+
			":start_timestamp, :end_timestamp, :voting_deadline, :invited_players, :is_open_access, "+
			":declined_players, :player_responses, :auto_decline_processed, :fixes_applied, :notification, "+
			":version, :created_at, :updated_at)",
		r)
	if isUniqueViolation(err) {
		return fmt.Errorf("duplicate ID %q: %w", e.ID, storage.ErrDuplicateEventID)
	}
	return err
}

func (s *Storage) GetEvent(ctx context.Context, id string) (storage.Event, error) {
	return s.getEvent(ctx, s.db, id, "")
}

func (s *Storage) getEvent(ctx context.Context, q sqlx.QueryerContext, id string, lock string) (storage.Event, error) {
	var r row
	err := sqlx.GetContext(ctx, q, &r, s.db.Rebind("SELECT "+eventColumns+" FROM events WHERE id=?"+lock), id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Event{}, fmt.Errorf("event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	if err != nil {
		return storage.Event{}, err
	}
	return r.toEvent()
}

func (s *Storage) ListEvents(ctx context.Context, from time.Time, to time.Time) ([]storage.Event, error) {
	return s.selectEvents(ctx, "WHERE start_timestamp>=? AND start_timestamp<? ORDER BY start_timestamp, id",
		from.UTC(), to.UTC())
}

func (s *Storage) ListAll(ctx context.Context) ([]storage.Event, error) {
	return s.selectEvents(ctx, "ORDER BY start_timestamp, id")
}

func (s *Storage) ListPendingAutoDecline(ctx context.Context, now time.Time) ([]storage.Event, error) {
	return s.selectEvents(ctx,
		"WHERE auto_decline_processed=? AND voting_deadline IS NOT NULL AND voting_deadline<=? "+
			"ORDER BY voting_deadline, id",
		false, now.UTC())
}

// UpdateEvent locks the row on postgres; on sqlite the single connection
// serializes transactions. The version guard catches writers that bypass both.
func (s *Storage) UpdateEvent(ctx context.Context, id string, m storage.Mutator) (storage.Event, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storage.Event{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	lock := ""
	if s.config.Driver == DriverPostgres {
		lock = " FOR UPDATE"
	}
	current, err := s.getEvent(ctx, tx, id, lock)
	if err != nil {
		return storage.Event{}, fmt.Errorf("failed to update event: %w", err)
	}

	next, err := storage.Apply(current, m, s.now())
	if err != nil {
		return current, err
	}

	r, err := toRow(next)
	if err != nil {
		return current, err
	}
	query, args, err := sqlx.Named(
		"UPDATE events SET title=:title, type=:type, description=:description, location=:location, "+
			"team_id=:team_id, start_timestamp=:start_timestamp, end_timestamp=:end_timestamp, "+
			"voting_deadline=:voting_deadline, invited_players=:invited_players, is_open_access=:is_open_access, "+
			"declined_players=:declined_players, player_responses=:player_responses, "+
			"auto_decline_processed=:auto_decline_processed, fixes_applied=:fixes_applied, "+
			"notification=:notification, version=:version, updated_at=:updated_at "+
			"WHERE id=:id AND version=:expected_version",
		versionedRow{row: r, ExpectedVersion: current.Version})
	if err != nil {
		return current, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return current, fmt.Errorf("failed to update event with id %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return current, err
	}
	if affected == 0 {
		return current, fmt.Errorf("event with id %q: %w", id, storage.ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return current, fmt.Errorf("failed to commit event with id %q: %w", id, err)
	}
	return next, nil
}

func (s *Storage) selectEvents(ctx context.Context, where string, args ...interface{}) ([]storage.Event, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind("SELECT "+eventColumns+" FROM events "+where), args...)
	if err != nil {
		return nil, err
	}
	events := make([]storage.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == dbErrUniqueViolation {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		liteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return true
	}
	return false
}

type row struct {
	ID                   string       `db:"id"`
	Title                string       `db:"title"`
	Type                 string       `db:"type"`
	Description          string       `db:"description"`
	Location             string       `db:"location"`
	TeamID               string       `db:"team_id"`
	StartTime            time.Time    `db:"start_timestamp"`
	EndTime              time.Time    `db:"end_timestamp"`
	VotingDeadline       sql.NullTime `db:"voting_deadline"`
	InvitedPlayers       string       `db:"invited_players"`
	IsOpenAccess         bool         `db:"is_open_access"`
	DeclinedPlayers      string       `db:"declined_players"`
	PlayerResponses      string       `db:"player_responses"`
	AutoDeclineProcessed bool         `db:"auto_decline_processed"`
	FixesApplied         string       `db:"fixes_applied"`
	Notification         string       `db:"notification"`
	Version              int64        `db:"version"`
	CreatedAt            time.Time    `db:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at"`
}

type versionedRow struct {
	row
	ExpectedVersion int64 `db:"expected_version"`
}

func toRow(e storage.Event) (row, error) {
	r := row{
		ID:                   e.ID,
		Title:                e.Title,
		Type:                 string(e.Type),
		Description:          e.Description,
		Location:             e.Location,
		TeamID:               e.TeamID,
		StartTime:            e.StartTime.UTC(),
		EndTime:              e.EndTime.UTC(),
		IsOpenAccess:         e.IsOpenAccess,
		AutoDeclineProcessed: e.AutoDeclineProcessed,
		Version:              e.Version,
		CreatedAt:            e.CreatedAt.UTC(),
		UpdatedAt:            e.UpdatedAt.UTC(),
	}
	if e.VotingDeadline != nil {
		r.VotingDeadline = sql.NullTime{Time: e.VotingDeadline.UTC(), Valid: true}
	}
	fields := []struct {
		dst *string
		src interface{}
	}{
		{&r.InvitedPlayers, nonNil(e.InvitedPlayers)},
		{&r.DeclinedPlayers, nonNil(e.DeclinedPlayers)},
		{&r.PlayerResponses, e.PlayerResponses},
		{&r.FixesApplied, nonNil(e.FixesApplied)},
		{&r.Notification, e.Notification},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.src)
		if err != nil {
			return row{}, fmt.Errorf("failed to encode event %q: %w", e.ID, err)
		}
		*f.dst = string(data)
	}
	if r.PlayerResponses == "null" {
		r.PlayerResponses = "[]"
	}
	return r, nil
}

func (r row) toEvent() (storage.Event, error) {
	e := storage.Event{
		ID:                   r.ID,
		Title:                r.Title,
		Type:                 storage.EventType(r.Type),
		Description:          r.Description,
		Location:             r.Location,
		TeamID:               r.TeamID,
		StartTime:            r.StartTime.UTC(),
		EndTime:              r.EndTime.UTC(),
		IsOpenAccess:         r.IsOpenAccess,
		AutoDeclineProcessed: r.AutoDeclineProcessed,
		Version:              r.Version,
		CreatedAt:            r.CreatedAt.UTC(),
		UpdatedAt:            r.UpdatedAt.UTC(),
	}
	if r.VotingDeadline.Valid {
		d := r.VotingDeadline.Time.UTC()
		e.VotingDeadline = &d
	}
	fields := []struct {
		src string
		dst interface{}
	}{
		{r.InvitedPlayers, &e.InvitedPlayers},
		{r.DeclinedPlayers, &e.DeclinedPlayers},
		{r.PlayerResponses, &e.PlayerResponses},
		{r.FixesApplied, &e.FixesApplied},
		{r.Notification, &e.Notification},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return storage.Event{}, fmt.Errorf("failed to decode event %q: %w", r.ID, err)
		}
	}
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
