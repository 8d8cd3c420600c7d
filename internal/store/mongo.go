package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoOptions configures the MongoDB backend.
type MongoOptions struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
}

// MongoBackend is the primary document store.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Backend = (*MongoBackend)(nil)

// OpenMongo connects, verifies the connection and ensures the indexes.
func OpenMongo(ctx context.Context, o MongoOptions) (*MongoBackend, error) {
	if o.URI == "" {
		return nil, errors.New("mongo: URI is required")
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}

	opts := options.Client().
		ApplyURI(o.URI).
		SetConnectTimeout(o.Timeout).
		SetServerSelectionTimeout(o.Timeout)
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		opts.SetMinPoolSize(o.MinPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	b := &MongoBackend{client: client, db: client.Database(o.Database)}
	if err := b.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return b, nil
}

// EnsureIndexes creates the unique learner index on the keyed collections
// and a plain one on the others.
func (b *MongoBackend) EnsureIndexes(ctx context.Context) error {
	for _, name := range allCollections {
		if _, err := b.db.Collection(name).Indexes().CreateOne(ctx, learnerIndex(name)); err != nil {
			return fmt.Errorf("create %s index: %w", name, err)
		}
	}
	return nil
}

func learnerIndex(collection string) mongo.IndexModel {
	m := mongo.IndexModel{Keys: bson.D{{Key: learnerKey, Value: 1}}}
	for _, k := range keyedCollections {
		if k == collection {
			m.Options = options.Index().SetUnique(true)
		}
	}
	return m
}

func (b *MongoBackend) Collection(name string) Collection {
	return &mongoCollection{col: b.db.Collection(name)}
}

func (b *MongoBackend) Ping(ctx context.Context) error { return b.client.Ping(ctx, nil) }

func (b *MongoBackend) Close(ctx context.Context) error { return b.client.Disconnect(ctx) }

type mongoCollection struct {
	col *mongo.Collection
}

func mongoFilter(f Filter) bson.M {
	if f == nil {
		return bson.M{}
	}
	return bson.M(f)
}

// mongoSort orders by the requested field, then by insertion.
func mongoSort(o findOptions) bson.D {
	if o.sortDesc != "" {
		return bson.D{{Key: o.sortDesc, Value: -1}, {Key: "_id", Value: -1}}
	}
	return bson.D{{Key: "_id", Value: 1}}
}

func (c *mongoCollection) FindOne(ctx context.Context, f Filter, out any, opts ...FindOption) (bool, error) {
	o := applyFindOptions(opts)
	err := c.col.FindOne(ctx, mongoFilter(f), options.FindOne().SetSort(mongoSort(o))).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find %s: %w", c.col.Name(), err)
	}
	return true, nil
}

func (c *mongoCollection) Find(ctx context.Context, f Filter, out any, opts ...FindOption) error {
	o := applyFindOptions(opts)
	fo := options.Find().SetSort(mongoSort(o))
	if o.limit > 0 {
		fo.SetLimit(int64(o.limit))
	}
	cur, err := c.col.Find(ctx, mongoFilter(f), fo)
	if err != nil {
		return fmt.Errorf("find %s: %w", c.col.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", c.col.Name(), err)
	}
	return nil
}

func (c *mongoCollection) ReplaceOne(ctx context.Context, f Filter, doc any) error {
	_, err := c.col.ReplaceOne(ctx, mongoFilter(f), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s: %w", c.col.Name(), err)
	}
	return nil
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) error {
	if _, err := c.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert %s: %w", c.col.Name(), err)
	}
	return nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, f Filter, set map[string]any) (bool, error) {
	res, err := c.col.UpdateOne(ctx, mongoFilter(f), bson.M{"$set": bson.M(set)})
	if err != nil {
		return false, fmt.Errorf("update %s: %w", c.col.Name(), err)
	}
	return res.MatchedCount > 0, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, f Filter) (int64, error) {
	res, err := c.col.DeleteOne(ctx, mongoFilter(f))
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.col.Name(), err)
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	res, err := c.col.DeleteMany(ctx, mongoFilter(f))
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.col.Name(), err)
	}
	return res.DeletedCount, nil
}
