// Package mongo is the MongoDB transaction store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"warung/internal/core"
)

const (
	DefaultDatabase = "warung"
	Collection      = "transactions"
)

// document is the stored shape of a transaction.
type document struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Kind       string             `bson:"kind"`
	Item       string             `bson:"item"`
	Amount     int64              `bson:"amount"`
	Quantity   int64              `bson:"quantity"`
	OccurredAt primitive.DateTime `bson:"occurred_at"`
	OwnerID    string             `bson:"owner_id"`
	Note       string             `bson:"note"`
	CreatedAt  primitive.DateTime `bson:"created_at"`
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to uri, verifies the connection and ensures the owner/time index.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, coll: client.Database(database).Collection(Collection)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		Options: options.Index().SetName("owner_occurred"),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Insert stores t and returns the ObjectID hex.
func (s *Store) Insert(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	doc := toDocument(t, time.Now())
	doc.ID = primitive.NewObjectID()

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *Store) FindMany(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	cur, err := s.coll.Find(ctx, buildFilter(f), options.Find().SetSort(buildSort(f.Order)))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]core.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) FindLatest(ctx context.Context, f core.Filter) (core.Transaction, error) {
	var doc document
	err := s.coll.FindOne(ctx, buildFilter(f), options.FindOne().SetSort(buildSort(f.Order))).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("find latest transaction: %w", err)
	}
	return doc.toCore(), nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return core.ErrNotFound
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func buildFilter(f core.Filter) bson.M {
	filter := bson.M{"owner_id": f.OwnerID}
	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		filter["kind"] = bson.M{"$in": kinds}
	}

	window := bson.M{}
	if !f.From.IsZero() {
		window["$gte"] = primitive.NewDateTimeFromTime(f.From)
	}
	if !f.Until.IsZero() {
		window["$lt"] = primitive.NewDateTimeFromTime(f.Until)
	}
	if len(window) > 0 {
		filter["occurred_at"] = window
	}
	return filter
}

// buildSort orders by time with the ObjectID as creation-order tie break.
func buildSort(o core.Order) bson.D {
	dir := 1
	if o == core.Descending {
		dir = -1
	}
	return bson.D{{Key: "occurred_at", Value: dir}, {Key: "_id", Value: dir}}
}

func toDocument(t core.Transaction, now time.Time) document {
	return document{
		Kind:       string(t.Kind),
		Item:       t.Item,
		Amount:     t.Amount,
		Quantity:   t.Quantity,
		OccurredAt: primitive.NewDateTimeFromTime(t.OccurredAt),
		OwnerID:    t.OwnerID,
		Note:       t.Note,
		CreatedAt:  primitive.NewDateTimeFromTime(now),
	}
}

func (d document) toCore() core.Transaction {
	return core.Transaction{
		ID:         d.ID.Hex(),
		Kind:       core.Kind(d.Kind),
		Item:       d.Item,
		Amount:     d.Amount,
		Quantity:   d.Quantity,
		OccurredAt: d.OccurredAt.Time(),
		OwnerID:    d.OwnerID,
		Note:       d.Note,
	}
}
