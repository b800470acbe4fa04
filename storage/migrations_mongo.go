package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionCounters = "persist_counters"
	mongoVersionDocID  = "schema"
)

// mongoIndex is one index created by a schema step.
type mongoIndex struct {
	collection string
	name       string
	keys       bson.D
	unique     bool
}

// mongoSchema lists the index sets per version; step i brings the schema
// to version i+1.
var mongoSchema = [][]mongoIndex{
	{
		{tableObject, "uq_persist_object_kind_key", bson.D{{Key: colKind, Value: 1}, {Key: colObjectKey, Value: 1}}, true},
		{tableObject, "uq_persist_object_uuid", bson.D{{Key: colUUID, Value: 1}}, true},
		{tableObject, "idx_persist_object_kind_seq", bson.D{{Key: colKind, Value: 1}, {Key: colID, Value: 1}}, false},
		{tablePreference, "uq_persist_preference_file_key", bson.D{{Key: colFile, Value: 1}, {Key: colPrefKey, Value: 1}}, true},
	},
}

func (ix mongoIndex) model() mongo.IndexModel {
	opts := options.Index().SetName(ix.name)
	if ix.unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: ix.keys, Options: opts}
}

func (d *MongoDriver) migrateMongo(ctx context.Context) error {
	current, err := d.mongoSchemaVersion(ctx)
	if err != nil {
		return err
	}

	for v := current; v < len(mongoSchema); v++ {
		for _, ix := range mongoSchema[v] {
			_, err := d.db().Collection(ix.collection).Indexes().CreateOne(ctx, ix.model())
			if err != nil && !mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("mongo schema v%d: index %s: %w", v+1, ix.name, err)
			}
		}
		if err := d.setMongoSchemaVersion(ctx, v+1); err != nil {
			return err
		}
	}
	return nil
}

func (d *MongoDriver) mongoSchemaVersion(ctx context.Context) (int, error) {
	var doc struct {
		Num int `bson:"num"`
	}
	err := d.db().Collection(tableSchemaVersion).
		FindOne(ctx, bson.M{"_id": mongoVersionDocID}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("mongo schema version: %w", err)
	}
	return doc.Num, nil
}

func (d *MongoDriver) setMongoSchemaVersion(ctx context.Context, v int) error {
	_, err := d.db().Collection(tableSchemaVersion).ReplaceOne(
		ctx,
		bson.M{"_id": mongoVersionDocID},
		bson.M{"_id": mongoVersionDocID, "num": v},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo schema version %d: %w", v, err)
	}
	return nil
}
