package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contest-quiz-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	questionsCollection = "questions"
	studentsCollection  = "students"
	resultsCollection   = "results"
)

// Store is the document Persistence Layer: three collections, each document
// keyed by a generated ObjectID hex string.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB, pings it and makes sure the unique indexes exist.
// An unreachable server is reported as domain.ErrConnection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	store := &Store{client: client, db: client.Database(database)}
	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

// EnsureIndexes creates the unique keys that close the registration and
// double-submit races.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		studentsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		},
		resultsCollection: {
			{Keys: bson.D{{Key: "student_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("student_unique")},
			{Keys: bson.D{{Key: "student_email", Value: 1}}, Options: options.Index().SetName("student_email")},
			{Keys: bson.D{{Key: "submitted_at", Value: 1}}, Options: options.Index().SetName("submitted_at")},
		},
		questionsCollection: {
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("type_created")},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collections lists the collections present in the database.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	return s.db.ListCollectionNames(ctx, bson.D{})
}

func (s *Store) InsertQuestion(ctx context.Context, q domain.Question) (string, error) {
	q.ID = primitive.NewObjectID().Hex()
	return insert(ctx, s.db.Collection(questionsCollection), q.ID, q)
}

func (s *Store) FindQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if len(filter.IDs) > 0 {
		query["_id"] = bson.M{"$in": filter.IDs}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return findMany[domain.Question](ctx, s.db.Collection(questionsCollection), query, opts)
}

func (s *Store) InsertStudent(ctx context.Context, st domain.Student) (string, error) {
	st.ID = primitive.NewObjectID().Hex()
	id, err := insert(ctx, s.db.Collection(studentsCollection), st.ID, st)
	if mongo.IsDuplicateKeyError(err) {
		return "", domain.ErrDuplicateRegistration
	}
	return id, err
}

func (s *Store) FindStudent(ctx context.Context, id string) (domain.Student, error) {
	return findOne[domain.Student](ctx, s.db.Collection(studentsCollection), bson.M{"_id": id})
}

func (s *Store) FindStudentByEmail(ctx context.Context, email string) (domain.Student, error) {
	return findOne[domain.Student](ctx, s.db.Collection(studentsCollection), bson.M{"email": email})
}

func (s *Store) FindStudents(ctx context.Context) ([]domain.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "registered_at", Value: 1}, {Key: "_id", Value: 1}})
	return findMany[domain.Student](ctx, s.db.Collection(studentsCollection), bson.M{}, opts)
}

func (s *Store) InsertResult(ctx context.Context, r domain.Result) (string, error) {
	r.ID = primitive.NewObjectID().Hex()
	id, err := insert(ctx, s.db.Collection(resultsCollection), r.ID, r)
	if mongo.IsDuplicateKeyError(err) {
		return "", domain.ErrAlreadySubmitted
	}
	return id, err
}

func (s *Store) FindResultByStudent(ctx context.Context, studentID string) (domain.Result, error) {
	return findOne[domain.Result](ctx, s.db.Collection(resultsCollection), bson.M{"student_id": studentID})
}

func (s *Store) FindResultByEmail(ctx context.Context, email string) (domain.Result, error) {
	return findOne[domain.Result](ctx, s.db.Collection(resultsCollection), bson.M{"student_email": email})
}

func (s *Store) FindResults(ctx context.Context) ([]domain.Result, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}})
	return findMany[domain.Result](ctx, s.db.Collection(resultsCollection), bson.M{}, opts)
}

// insert, findOne and findMany are the whole persistence contract; the
// typed methods above are thin wrappers.
func insert(ctx context.Context, coll *mongo.Collection, id string, doc any) (string, error) {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", err
		}
		return "", fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	return id, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (T, error) {
	var doc T
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, domain.ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("find one in %s: %w", coll.Name(), err)
	}
	return doc, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := make([]T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", coll.Name(), err)
	}
	return docs, nil
}
