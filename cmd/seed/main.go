// seed inserts a couple of demo machines and jobs into a local dev Mongo
// instance. Run: go run ./cmd/seed
// Grounded on the teacher's cmd/seed/main.go (idempotent upserts, printed
// summary of what was created).
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kpopdotlink/fleetcron/config"
	"github.com/kpopdotlink/fleetcron/internal/domain"
	"github.com/kpopdotlink/fleetcron/internal/store/mongodb"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer client.Disconnect(ctx)

	gateway := mongodb.New(client.Database(cfg.DBName), cfg.OrderField, nil)
	if err := gateway.EnsureIndexes(ctx); err != nil {
		log.Fatalf("ensure indexes: %v", err)
	}

	machines := []struct {
		id, hostname string
	}{
		{"seed-machine-a", "seed-host-a"},
		{"seed-machine-b", "seed-host-b"},
	}
	for _, m := range machines {
		if _, err := gateway.EnsureMachine(ctx, m.id, m.hostname); err != nil {
			log.Fatalf("ensure machine %s: %v", m.id, err)
		}
	}

	minutep := func(m int) *int { return &m }

	jobs := []domain.Job{
		{
			JobID:     "seed-job-healthcheck",
			Name:      "healthcheck ping",
			Enabled:   true,
			Schedules: []domain.ScheduleEntry{{Minute: 0}}, // every hour at :00
			Flat: &domain.Step{
				Type:   "http",
				Method: "GET",
				URL:    "https://httpbin.org/status/204",
			},
		},
		{
			JobID:   "seed-job-daily-report",
			Name:    "daily report chain",
			Enabled: true,
			Hour:    minutep(9),
			Minute:  minutep(0),
			Actions: []domain.Step{
				{Type: "http", Method: "POST", URL: "https://httpbin.org/post", Body: map[string]any{"stage": "start"}},
				{Type: "http", Method: "GET", URL: "https://httpbin.org/status/500", Retry: &domain.RetryPolicy{Retries: 2, DelaySec: 1, Backoff: 2}},
				{Type: "http", Method: "POST", URL: "https://httpbin.org/post", Body: map[string]any{"stage": "done"}, ContinueOnFailure: true},
			},
		},
	}

	jobsColl := client.Database(cfg.DBName).Collection("jobs")
	var inserted, skipped int
	for _, job := range jobs {
		res, err := jobsColl.UpdateOne(ctx,
			bson.M{"job_id": job.JobID},
			bson.M{"$setOnInsert": &job},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			log.Fatalf("upsert job %s: %v", job.JobID, err)
		}
		if res.UpsertedCount > 0 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Println("seed complete")
	fmt.Printf("  machines:     %d\n", len(machines))
	fmt.Printf("  jobs created: %d (skipped %d already existing)\n", inserted, skipped)
	fmt.Printf("  db:           %s\n", cfg.DBName)
	fmt.Println()
	fmt.Println("run `fleetcron` to start an agent against this database, or")
	fmt.Println("`fleetcron reload` / `fleetcron reload-config` to push a command.")
}
