package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coursewizard/db/models"
)

const insertAttempts = 3

// SaveAnswer stores one recorded answer, retrying transient insert failures.
func (s *Store) SaveAnswer(ctx context.Context, doc models.AnswerDocument) error {
	doc.CreatedAt = time.Now().UTC()
	_, err := s.insertWithRetry(ctx, s.collection(answersCollection), doc)
	return err
}

// GetAnswerHistory returns a session's answers in recorded order, and the
// total number stored for it.
func (s *Store) GetAnswerHistory(ctx context.Context, sessionID string, limit, offset int) ([]models.AnswerDocument, int64, error) {
	coll := s.collection(answersCollection)
	filter := bson.M{"session_id": sessionID}

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}}).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	docs := []models.AnswerDocument{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// SaveContent stores committed content and returns its hex id.
func (s *Store) SaveContent(ctx context.Context, doc models.ContentDocument) (string, error) {
	doc.CreatedAt = time.Now().UTC()
	id, err := s.insertWithRetry(ctx, s.collection(contentsCollection), doc)
	if err != nil {
		return "", err
	}
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return "", errors.New("db: unexpected inserted id type")
}

func (s *Store) GetContent(ctx context.Context, id string) (*models.ContentDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc models.ContentDocument
	err = s.collection(contentsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) CreateIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	answerIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "index", Value: 1}}},
		{Keys: bson.D{{Key: "course_id", Value: 1}, {Key: "student_id", Value: 1}}},
	}
	if _, err := s.collection(answersCollection).Indexes().CreateMany(ctx, answerIndexes); err != nil {
		return err
	}

	contentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "mentions", Value: 1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := s.collection(contentsCollection).Indexes().CreateMany(ctx, contentIndexes)
	return err
}

func (s *Store) insertWithRetry(ctx context.Context, coll *mongo.Collection, doc interface{}) (interface{}, error) {
	var lastErr error
	for i := 0; i < insertAttempts; i++ {
		res, err := coll.InsertOne(ctx, doc)
		if err == nil {
			return res.InsertedID, nil
		}
		lastErr = err
		if i == insertAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond * time.Duration(i+1)):
		}
	}
	return nil, lastErr
}
