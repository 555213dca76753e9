package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pagebuilder/internal/domain"
)

const releasesCollection = "releases"

// releaseDoc is the stored shape. theme_schema is kept as the JSON text the
// backend receives so block properties round-trip without BSON type drift.
type releaseDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	ThemeSchema string    `bson:"theme_schema"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// MongoReleaseStore implements domain.ReleaseStore on MongoDB.
type MongoReleaseStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// OpenMongo connects to uri and returns a store over database.releases.
func OpenMongo(ctx context.Context, uri, database string) (*MongoReleaseStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoReleaseStore{
		client:  client,
		coll:    client.Database(database).Collection(releasesCollection),
		timeout: 10 * time.Second,
	}, nil
}

// Close disconnects the client.
func (s *MongoReleaseStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoReleaseStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func toDoc(r *domain.Release) (releaseDoc, error) {
	schema, err := encodeSchema(r.ThemeSchema)
	if err != nil {
		return releaseDoc{}, err
	}
	return releaseDoc{
		ID:          r.ID,
		Name:        r.Name,
		ThemeSchema: schema,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func fromDoc(d releaseDoc) (domain.Release, error) {
	blocks, err := decodeSchema(d.ThemeSchema)
	if err != nil {
		return domain.Release{}, err
	}
	return domain.Release{
		ID:          d.ID,
		Name:        d.Name,
		ThemeSchema: blocks,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (s *MongoReleaseStore) CreateRelease(r *domain.Release) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	doc, err := toDoc(r)
	if err != nil {
		return err
	}
	ctx, cancel := s.ctx()
	defer cancel()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert release: %w", err)
	}
	return nil
}

func (s *MongoReleaseStore) GetRelease(id string) (*domain.Release, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	var doc releaseDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get release %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get release: %w", err)
	}
	r, err := fromDoc(doc)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoReleaseStore) ListReleases() ([]domain.Release, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer cur.Close(ctx)

	var docs []releaseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode releases: %w", err)
	}
	releases := make([]domain.Release, 0, len(docs))
	for _, d := range docs {
		r, err := fromDoc(d)
		if err != nil {
			return nil, err
		}
		releases = append(releases, r)
	}
	return releases, nil
}

func (s *MongoReleaseStore) UpdateRelease(r *domain.Release) error {
	r.UpdatedAt = time.Now().UTC()
	schema, err := encodeSchema(r.ThemeSchema)
	if err != nil {
		return err
	}
	ctx, cancel := s.ctx()
	defer cancel()
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: r.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: r.Name},
			{Key: "theme_schema", Value: schema},
			{Key: "updated_at", Value: r.UpdatedAt},
		}}},
	)
	if err != nil {
		return fmt.Errorf("update release: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update release %s: %w", r.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *MongoReleaseStore) DeleteRelease(id string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}
