// Package mongodb is the Mongo-backed implementation of store.Gateway.
// Grounded on the teacher's internal/infrastructure/postgres package: one
// file per concern (connection setup, then CRUD-shaped operations split by
// collection), errors wrapped at the operation boundary in
// store.TransientError / store.FatalError; a lost claim (duplicate key or
// no matching document) is reported as false rather than as an error.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect dials uri and verifies connectivity with a ping, mirroring the
// teacher's postgres.NewPool (parse config, connect, ping, wrap errors).
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Minute).
		SetConnectTimeout(5 * time.Second)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Pinger adapts *mongo.Client to health.Pinger's single-argument Ping,
// since the driver's Ping also takes a read preference.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}
