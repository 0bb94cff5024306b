package mongostorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var ErrConnectionFailed = errors.New("failed to connect")

const collectionName = "events"

type Config struct {
	URI      string
	Database string
}

type Storage struct {
	config Config
	client *mongo.Client
	events *mongo.Collection
	now    func() time.Time
}

func New(config Config) *Storage {
	return &Storage{config: config, now: time.Now}
}

func (s *Storage) Connect(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.config.URI))
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Errorf("failed to ping: %v", err)
		_ = client.Disconnect(ctx)
		return ErrConnectionFailed
	}
	s.client = client
	s.events = client.Database(s.config.Database).Collection(collectionName)

	_, err = s.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "startTime", Value: 1}}},
		{Keys: bson.D{{Key: "autoDeclineProcessed", Value: 1}, {Key: "votingDeadline", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
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

	_, err := s.events.InsertOne(ctx, e)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("duplicate ID %q: %w", e.ID, storage.ErrDuplicateEventID)
	}
	return err
}

func (s *Storage) GetEvent(ctx context.Context, id string) (storage.Event, error) {
	var e storage.Event
	err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.Event{}, fmt.Errorf("event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	if err != nil {
		return storage.Event{}, err
	}
	return e, nil
}

func (s *Storage) ListEvents(ctx context.Context, from time.Time, to time.Time) ([]storage.Event, error) {
	return s.find(ctx, bson.M{"startTime": bson.M{"$gte": from.UTC(), "$lt": to.UTC()}})
}

func (s *Storage) ListAll(ctx context.Context) ([]storage.Event, error) {
	return s.find(ctx, bson.M{})
}

func (s *Storage) ListPendingAutoDecline(ctx context.Context, now time.Time) ([]storage.Event, error) {
	return s.find(ctx, bson.M{
		"autoDeclineProcessed": false,
		"votingDeadline":       bson.M{"$ne": nil, "$lte": now.UTC()},
	})
}

// UpdateEvent replaces the document only if its version is still the one read.
func (s *Storage) UpdateEvent(ctx context.Context, id string, m storage.Mutator) (storage.Event, error) {
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return storage.Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	next, err := storage.Apply(current, m, s.now())
	if err != nil {
		return current, err
	}
	res, err := s.events.ReplaceOne(ctx, bson.M{"_id": id, "version": current.Version}, next)
	if err != nil {
		return current, fmt.Errorf("failed to update event with id %q: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return current, fmt.Errorf("event with id %q: %w", id, storage.ErrConflict)
	}
	return next, nil
}

func (s *Storage) find(ctx context.Context, filter bson.M) ([]storage.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	events := make([]storage.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
