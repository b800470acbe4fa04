package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoOpTimeout = 5 * time.Second

type mongoObjectRepo struct {
	db *mongo.Database
}

type mongoObjectDoc struct {
	ID          int64     `bson:"id"`
	UUID        string    `bson:"uuid"`
	Kind        string    `bson:"kind"`
	Key         string    `bson:"object_key"`
	Body        string    `bson:"body"`
	DateCreated time.Time `bson:"date_created"`
	DateUpdated time.Time `bson:"date_updated"`
}

func (d mongoObjectDoc) record() ObjectRecord {
	return ObjectRecord{
		Kind:        d.Kind,
		Key:         d.Key,
		Body:        []byte(d.Body),
		DateCreated: d.DateCreated,
		DateUpdated: d.DateUpdated,
	}
}

func (r *mongoObjectRepo) coll() *mongo.Collection { return r.db.Collection(tableObject) }

func (r *mongoObjectRepo) Insert(ctx context.Context, kind, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	seq, err := nextSeq(ctx, r.db, tableObject)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = r.coll().InsertOne(ctx, mongoObjectDoc{
		ID:          seq,
		UUID:        uuid.New().String(),
		Kind:        kind,
		Key:         key,
		Body:        string(body),
		DateCreated: now,
		DateUpdated: now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func (r *mongoObjectRepo) Put(ctx context.Context, kind, key string, body []byte) error {
	err := r.Update(ctx, kind, key, body)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	err = r.Insert(ctx, kind, key, body)
	if errors.Is(err, ErrDuplicate) {
		// Lost a race against a concurrent insert; overwrite it.
		return r.Update(ctx, kind, key, body)
	}
	return err
}

func (r *mongoObjectRepo) Update(ctx context.Context, kind, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := r.coll().UpdateOne(ctx,
		bson.M{colKind: kind, colObjectKey: key},
		bson.M{"$set": bson.M{colBody: string(body), colDateUpdated: time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoObjectRepo) Get(ctx context.Context, kind, key string) (ObjectRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var doc mongoObjectDoc
	err := r.coll().FindOne(ctx, bson.M{colKind: kind, colObjectKey: key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ObjectRecord{}, ErrNotFound
	}
	if err != nil {
		return ObjectRecord{}, err
	}
	return doc.record(), nil
}

func (r *mongoObjectRepo) List(ctx context.Context, kind string, limit, offset int) ([]ObjectRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: colID, Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	cur, err := r.coll().Find(ctx, bson.M{colKind: kind}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []ObjectRecord
	for cur.Next(ctx) {
		var doc mongoObjectDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.record())
	}
	return out, cur.Err()
}

func (r *mongoObjectRepo) Count(ctx context.Context, kind string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	return r.coll().CountDocuments(ctx, bson.M{colKind: kind})
}

func (r *mongoObjectRepo) Delete(ctx context.Context, kind, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := r.coll().DeleteOne(ctx, bson.M{colKind: kind, colObjectKey: key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoObjectRepo) DeleteAll(ctx context.Context, kind string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := r.coll().DeleteMany(ctx, bson.M{colKind: kind})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

type mongoPreferenceRepo struct {
	db *mongo.Database
}

type mongoPreferenceDoc struct {
	File        string    `bson:"file"`
	Key         string    `bson:"pref_key"`
	Value       string    `bson:"value"`
	DateUpdated time.Time `bson:"date_updated"`
}

func (r *mongoPreferenceRepo) coll() *mongo.Collection { return r.db.Collection(tablePreference) }

func (r *mongoPreferenceRepo) Get(ctx context.Context, file, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var doc mongoPreferenceDoc
	err := r.coll().FindOne(ctx, bson.M{colFile: file, colPrefKey: key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.Value, nil
}

func (r *mongoPreferenceRepo) Set(ctx context.Context, file, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := r.coll().ReplaceOne(ctx,
		bson.M{colFile: file, colPrefKey: key},
		mongoPreferenceDoc{File: file, Key: key, Value: value, DateUpdated: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *mongoPreferenceRepo) All(ctx context.Context, file string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cur, err := r.coll().Find(ctx, bson.M{colFile: file})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make(map[string]string)
	for cur.Next(ctx) {
		var doc mongoPreferenceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.Key] = doc.Value
	}
	return out, cur.Err()
}

func (r *mongoPreferenceRepo) Delete(ctx context.Context, file, key string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	_, err := r.coll().DeleteOne(ctx, bson.M{colFile: file, colPrefKey: key})
	return err
}

func (r *mongoPreferenceRepo) Clear(ctx context.Context, file string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	_, err := r.coll().DeleteMany(ctx, bson.M{colFile: file})
	return err
}

func nextSeq(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	coll := db.Collection(collectionCounters)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
