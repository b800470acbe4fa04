package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type MongoDriver struct {
	a     *MongoAdapter
	repos *mongoRepos
}

func newMongoDriver(adapter Adapter) (Driver, error) {
	a, ok := adapter.(*MongoAdapter)
	if !ok {
		return nil, fmt.Errorf("mongo driver expects *MongoAdapter, got %T", adapter)
	}
	return &MongoDriver{a: a}, nil
}

func (d *MongoDriver) Dialect() string { return DialectMongo }

func (d *MongoDriver) Migrate(ctx context.Context) error {
	if d.a == nil || d.a.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return d.migrateMongo(ctx)
}

func (d *MongoDriver) db() *mongo.Database { return d.a.DB }

type mongoRepos struct {
	object     ObjectRepo
	preference PreferenceRepo
}

func (d *MongoDriver) init() {
	if d.repos == nil {
		d.repos = &mongoRepos{
			object:     &mongoObjectRepo{db: d.db()},
			preference: &mongoPreferenceRepo{db: d.db()},
		}
	}
}

func (d *MongoDriver) Object() ObjectRepo {
	d.init()
	return d.repos.object
}

func (d *MongoDriver) Preference() PreferenceRepo {
	d.init()
	return d.repos.preference
}
