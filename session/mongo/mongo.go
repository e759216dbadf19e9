// Package mongo implements core.SessionStore on MongoDB, mirroring the
// collections the simulation has always recorded to: one document per
// session and one per spoken message, with compound indexes for the
// transcript queries.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/persona"
)

// Options configure the Mongo-backed store.
type Options struct {
	// Database is the database name holding both collections.
	Database string
	// ServerSelectionTimeout bounds how long connecting may block; fail fast
	// when the cluster is unreachable.
	ServerSelectionTimeout time.Duration
	// SocketTimeout bounds individual operations over long-running sessions.
	SocketTimeout time.Duration
}

// Store is a durable core.SessionStore backed by MongoDB.
type Store struct {
	client   *mongodrv.Client
	sessions *mongodrv.Collection
	messages *mongodrv.Collection
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		Database:               "rha",
		ServerSelectionTimeout: 5 * time.Second,
		SocketTimeout:          45 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(opts.ServerSelectionTimeout).
		SetTimeout(opts.SocketTimeout)

	client, err := mongodrv.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(opts.Database)
	store := &Store{
		client:   client,
		sessions: db.Collection("sessions"),
		messages: db.Collection("messages"),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateMany(ctx, []mongodrv.IndexModel{
		{Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "startTime", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo session indexes: %w", err)
	}

	// Fetch all messages for a session in order, and for a room across sessions.
	_, err = s.messages.Indexes().CreateMany(ctx, []mongodrv.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo message indexes: %w", err)
	}
	return nil
}

// CreateSession opens a new active session for the room.
func (s *Store) CreateSession(ctx context.Context, roomID string) (*core.Session, error) {
	sess := &core.Session{
		ID:             core.NewID(),
		RoomID:         roomID,
		StartTime:      time.Now().UTC(),
		Status:         core.SessionActive,
		PatientProfile: persona.Pending,
	}
	if _, err := s.sessions.InsertOne(ctx, sess); err != nil {
		return nil, fmt.Errorf("mongo insert session: %w", err)
	}
	return sess, nil
}

// GetSession returns the session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*core.Session, error) {
	var sess core.Session
	err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&sess)
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find session: %w", err)
	}
	return &sess, nil
}

// ActiveSession returns the most recently started active session for the room.
func (s *Store) ActiveSession(ctx context.Context, roomID string) (*core.Session, error) {
	filter := bson.M{"roomId": roomID, "status": core.SessionActive}
	opts := options.FindOne().SetSort(bson.D{{Key: "startTime", Value: -1}})

	var sess core.Session
	err := s.sessions.FindOne(ctx, filter, opts).Decode(&sess)
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find active session: %w", err)
	}
	return &sess, nil
}

// SetPatientProfile records the chosen profile on the session.
func (s *Store) SetPatientProfile(ctx context.Context, sessionID, profile string) error {
	update := bson.M{"$set": bson.M{"patientProfile": profile}}
	if _, err := s.sessions.UpdateByID(ctx, sessionID, update); err != nil {
		return fmt.Errorf("mongo set patient profile: %w", err)
	}
	return nil
}

// AppendMessage persists one spoken turn.
func (s *Store) AppendMessage(ctx context.Context, msg core.Message) error {
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("mongo insert message: %w", err)
	}
	return nil
}

// IncrementMessageCount bumps the session's counter.
func (s *Store) IncrementMessageCount(ctx context.Context, sessionID string) error {
	update := bson.M{"$inc": bson.M{"messageCount": 1}}
	if _, err := s.sessions.UpdateByID(ctx, sessionID, update); err != nil {
		return fmt.Errorf("mongo increment message count: %w", err)
	}
	return nil
}

// FinalizeSession marks the session stopped and records its end time. The
// status filter makes retries and duplicate finalizations no-ops.
func (s *Store) FinalizeSession(ctx context.Context, sessionID string, endTime time.Time) error {
	filter := bson.M{"_id": sessionID, "status": core.SessionActive}
	update := bson.M{"$set": bson.M{"status": core.SessionStopped, "endTime": endTime}}
	if _, err := s.sessions.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("mongo finalize session: %w", err)
	}
	return nil
}

// SessionsByRoom returns one page of the room's sessions, newest first.
func (s *Store) SessionsByRoom(ctx context.Context, roomID string, page, limit int) ([]core.Session, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	filter := bson.M{"roomId": roomID}

	total, err := s.sessions.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo count sessions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "startTime", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo find sessions: %w", err)
	}
	sessions := []core.Session{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, 0, fmt.Errorf("mongo decode sessions: %w", err)
	}
	return sessions, total, nil
}

// MessagesBySession returns the session's messages in chronological order.
func (s *Store) MessagesBySession(ctx context.Context, sessionID string) ([]core.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find messages: %w", err)
	}
	messages := []core.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongo decode messages: %w", err)
	}
	return messages, nil
}
