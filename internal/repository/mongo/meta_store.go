package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"seedvault/internal/domain"
)

// MetaStore persists library metadata records keyed by infohash.
type MetaStore struct {
	collection *mongo.Collection
}

type metaDoc struct {
	InfoHash   string `bson:"_id"`
	Managed    bool   `bson:"managed"`
	AccessedAt int64  `bson:"accessedAt"` // unix seconds, UTC
}

func NewMetaStore(client *mongo.Client, dbName, collectionName string) *MetaStore {
	return &MetaStore{collection: client.Database(dbName).Collection(collectionName)}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	return mongo.Connect(ctx, opts...)
}

func (s *MetaStore) EnsureIndexes(ctx context.Context) error {
	if s == nil || s.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "managed", Value: 1}}},
		{Keys: bson.D{{Key: "accessedAt", Value: -1}}},
	}
	_, err := s.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (s *MetaStore) Get(ctx context.Context, ih domain.InfoHash) (domain.Meta, error) {
	var doc metaDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": string(ih)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Meta{}, domain.ErrNotFound
		}
		return domain.Meta{}, err
	}
	return fromDoc(doc), nil
}

func (s *MetaStore) Upsert(ctx context.Context, m domain.Meta) error {
	doc := toDoc(m)
	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": doc.InfoHash},
		bson.M{"$set": bson.M{
			"managed":    doc.Managed,
			"accessedAt": doc.AccessedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Touch records an access event. Touching an unknown infohash is an error:
// access events must never create management authority on their own.
func (s *MetaStore) Touch(ctx context.Context, ih domain.InfoHash, at time.Time) error {
	res, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": string(ih)},
		bson.M{"$set": bson.M{"accessedAt": at.UTC().Unix()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MetaStore) List(ctx context.Context) ([]domain.Meta, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var metas []domain.Meta
	for cursor.Next(ctx) {
		var doc metaDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		metas = append(metas, fromDoc(doc))
	}
	return metas, cursor.Err()
}

func (s *MetaStore) Delete(ctx context.Context, ih domain.InfoHash) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": string(ih)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDoc(m domain.Meta) metaDoc {
	return metaDoc{
		InfoHash:   string(m.InfoHash),
		Managed:    m.Managed,
		AccessedAt: m.AccessedAt.UTC().Unix(),
	}
}

func fromDoc(doc metaDoc) domain.Meta {
	return domain.Meta{
		InfoHash:   domain.InfoHash(doc.InfoHash),
		Managed:    doc.Managed,
		AccessedAt: time.Unix(doc.AccessedAt, 0).UTC(),
	}
}
