package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/portfolio/backend/internal/model"
)

// mongoDocumentValidationFailure is the server error code for a write
// rejected by the collection's $jsonSchema validator.
const mongoDocumentValidationFailure = 121

// contactDocument is the stored shape of a contact message. Field names
// match the documents written by earlier versions of the service.
type contactDocument struct {
	ID      primitive.ObjectID `bson:"_id"`
	Name    string             `bson:"name"`
	Email   string             `bson:"email"`
	Message string             `bson:"message"`
	Date    time.Time          `bson:"date"`
}

func (d *contactDocument) toModel() *model.ContactMessage {
	return &model.ContactMessage{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Email:       d.Email,
		Message:     d.Message,
		SubmittedAt: d.Date.UTC(),
	}
}

// contactValidator mirrors applyContactSchema on the server side.
func contactValidator() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "email", "message", "date"},
		"properties": bson.M{
			"name":    bson.M{"bsonType": "string", "minLength": 1},
			"email":   bson.M{"bsonType": "string", "pattern": EmailPattern},
			"message": bson.M{"bsonType": "string", "minLength": 1},
			"date":    bson.M{"bsonType": "date"},
		},
	}}
}

// NewMongoClient connects to MongoDB and verifies the primary is reachable.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// MongoDatabaseFromURI returns the database named in a MongoDB connection
// string, or "" when the URI names none or cannot be parsed.
func MongoDatabaseFromURI(uri string) string {
	cs, err := connstring.Parse(uri)
	if err != nil {
		return ""
	}
	return cs.Database
}

// mongoPinger adapts *mongo.Client to DB.
type mongoPinger struct {
	client *mongo.Client
}

func (p mongoPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// MongoContactRepository is the MongoDB implementation of ContactRepository.
type MongoContactRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoContactRepository creates a MongoContactRepository writing to coll.
func NewMongoContactRepository(coll *mongo.Collection) *MongoContactRepository {
	return &MongoContactRepository{coll: coll, now: time.Now}
}

var (
	_ ContactRepository = (*MongoContactRepository)(nil)
	_ Migrator          = (*MongoContactRepository)(nil)
)

// Save inserts msg as a new document. The ObjectID is assigned here so the
// caller gets it back without a second round trip.
func (r *MongoContactRepository) Save(ctx context.Context, msg *model.ContactMessage) error {
	if err := applyContactSchema(msg, r.now()); err != nil {
		return err
	}
	doc := contactDocument{
		ID:      primitive.NewObjectID(),
		Name:    msg.Name,
		Email:   msg.Email,
		Message: msg.Message,
		Date:    msg.SubmittedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapMongoError(err)
	}
	msg.ID = doc.ID.Hex()
	return nil
}

// FindByID returns the document with the given hex ObjectID, or ErrNotFound.
func (r *MongoContactRepository) FindByID(ctx context.Context, id string) (*model.ContactMessage, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc contactDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// List returns contact messages newest first.
func (r *MongoContactRepository) List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactMessage, error) {
	opts = opts.Normalized()
	findOpts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))

	cur, err := r.coll.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []contactDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	messages := make([]*model.ContactMessage, 0, len(docs))
	for i := range docs {
		messages = append(messages, docs[i].toModel())
	}
	return messages, nil
}

// EnsureSchema creates the collection with its validator, or updates the
// validator of an existing collection, and indexes the date field.
func (r *MongoContactRepository) EnsureSchema(ctx context.Context) error {
	db := r.coll.Database()
	name := r.coll.Name()

	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if len(names) == 0 {
		createOpts := options.CreateCollection().
			SetValidator(contactValidator()).
			SetValidationLevel("strict").
			SetValidationAction("error")
		if err := db.CreateCollection(ctx, name, createOpts); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		slog.Info("contact collection created", "collection", name)
	} else {
		cmd := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: contactValidator()},
			{Key: "validationLevel", Value: "strict"},
			{Key: "validationAction", Value: "error"},
		}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("collMod %s: %w", name, err)
		}
		slog.Info("contact collection validator applied", "collection", name)
	}

	_, err = r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create date index: %w", err)
	}
	return nil
}

// Drop removes the collection.
func (r *MongoContactRepository) Drop(ctx context.Context) error {
	return r.coll.Drop(ctx)
}

func mapMongoError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(mongoDocumentValidationFailure) {
		return &SchemaValidationError{Reason: "document failed validation", Err: err}
	}
	return err
}
