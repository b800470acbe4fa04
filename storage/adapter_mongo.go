package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type MongoAdapter struct {
	DB *mongo.Database
}

func (a *MongoAdapter) Dialect() string { return DialectMongo }

// Close disconnects the client the database belongs to.
func (a *MongoAdapter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.DB.Client().Disconnect(ctx)
}

func isMongoDB(conn any) bool {
	_, ok := conn.(*mongo.Database)
	return ok
}

func newMongoAdapter(conn any) (Adapter, error) {
	db := conn.(*mongo.Database)
	return &MongoAdapter{DB: db}, nil
}
