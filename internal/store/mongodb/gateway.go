package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

// legacySerialField is the fixed second name the original codebase wrote
// alongside the configurable order field (spec.md §9, "Multi-field legacy
// order"). See DESIGN.md for the resolved Open Question.
const legacySerialField = "serial"

// Gateway is the Mongo-backed store.Gateway. orderField names the primary
// alias a machine's priority value is written/read under; legacySerialField
// is always written alongside it.
type Gateway struct {
	db         *mongo.Database
	orderField atomic.Pointer[string]
	logger     *slog.Logger

	machines *mongo.Collection
	jobs     *mongo.Collection
	jobRuns  *mongo.Collection
	commands *mongo.Collection
}

// New builds a Gateway over db. orderField defaults to "order" when empty.
func New(db *mongo.Database, orderField string, logger *slog.Logger) *Gateway {
	if orderField == "" {
		orderField = "order"
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		db:       db,
		logger:   logger.With("component", "store.mongodb"),
		machines: db.Collection("machines"),
		jobs:     db.Collection("jobs"),
		jobRuns:  db.Collection("job_runs"),
		commands: db.Collection("commands"),
	}
	g.orderField.Store(&orderField)
	return g
}

// SetOrderField atomically swaps the primary order-field alias — wired to
// reload_config so a live fleet can rename its primary field without a
// restart (spec.md §9, "Multi-field legacy order"). Concurrent heartbeats
// may briefly observe the old name; both names are always kept in sync on
// write, so the transient read is safe (see DESIGN.md).
func (g *Gateway) SetOrderField(name string) {
	if name == "" {
		name = "order"
	}
	g.orderField.Store(&name)
}

func (g *Gateway) field() string {
	return *g.orderField.Load()
}

// EnsureIndexes creates every index spec.md §4.2 names. Safe to call on
// every startup — CreateMany is idempotent for identical specs.
func (g *Gateway) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := g.machines.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "machine_id", Value: 1}}, Options: unique,
	})
	if err != nil {
		return wrap("ensure machines index", err)
	}

	_, err = g.jobRuns.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "job_id", Value: 1}, {Key: "scheduled_for", Value: 1}}, Options: unique,
	})
	if err != nil {
		return wrap("ensure job_runs index", err)
	}

	_, err = g.jobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "enabled", Value: 1}, {Key: "hour", Value: 1}, {Key: "minute", Value: 1}}},
		{Keys: bson.D{{Key: "enabled", Value: 1}, {Key: "schedules.hour", Value: 1}, {Key: "schedules.minute", Value: 1}}},
	})
	if err != nil {
		return wrap("ensure jobs index", err)
	}

	_, err = g.machines.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "last_online_minute", Value: 1}},
	})
	if err != nil {
		return wrap("ensure last_online_minute index", err)
	}

	_, err = g.commands.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "target", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return wrap("ensure commands index", err)
	}
	return nil
}

// EnsureMachine upserts machineID, seeding order_value (and its legacy
// alias) to domain.DefaultOrderValue on first insert (spec §4.2).
func (g *Gateway) EnsureMachine(ctx context.Context, machineID, hostname string) (domain.Machine, error) {
	now := time.Now().UTC()
	filter := bson.M{"machine_id": machineID}
	update := bson.M{
		"$set": bson.M{
			"hostname":  hostname,
			"last_seen": now,
		},
		"$setOnInsert": bson.M{
			"machine_id":      machineID,
			"created_at":      now,
			g.field():      domain.DefaultOrderValue,
			legacySerialField: domain.DefaultOrderValue,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var raw bson.M
	err := g.machines.FindOneAndUpdate(ctx, filter, update, opts).Decode(&raw)
	if err != nil {
		return domain.Machine{}, wrap("ensure machine", err)
	}
	return decodeMachine(raw, g.field()), nil
}

// UpdateHeartbeat records that machineID is alive for minuteUTC (spec §4.2,
// §4.7 Phase A step 1).
func (g *Gateway) UpdateHeartbeat(ctx context.Context, machineID string, minuteUTC time.Time) error {
	_, err := g.machines.UpdateOne(ctx,
		bson.M{"machine_id": machineID},
		bson.M{"$set": bson.M{"last_online_minute": minuteUTC, "last_seen": time.Now().UTC()}},
	)
	if err != nil {
		return wrap("update heartbeat", err)
	}
	return nil
}

// ListMachinesSorted returns every machine ordered by (order_value ASC,
// machine_id ASC) — the fleet priority order (spec §3, §4.7).
func (g *Gateway) ListMachinesSorted(ctx context.Context) ([]domain.Machine, error) {
	field := g.field()
	cur, err := g.machines.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: field, Value: 1}, {Key: "machine_id", Value: 1},
	}))
	if err != nil {
		return nil, wrap("list machines", err)
	}
	defer cur.Close(ctx)

	var machines []domain.Machine
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode machine: %w", err)
		}
		machines = append(machines, decodeMachine(raw, field))
	}
	if err := cur.Err(); err != nil {
		return nil, wrap("iterate machines", err)
	}

	sortMachines(machines, field)
	return machines, nil
}

// decodeMachine tolerates either the configured primary order field or the
// legacy serial alias being present, per spec.md §9's "treat both names as
// authoritative" resolution.
func decodeMachine(raw bson.M, orderField string) domain.Machine {
	m := domain.Machine{
		MachineID: stringField(raw, "machine_id"),
		Hostname:  stringField(raw, "hostname"),
		OrderValue: intField(raw, orderField, func() int {
			return intField(raw, legacySerialField, func() int { return domain.DefaultOrderValue })
		}),
		Serial:    intField(raw, legacySerialField, func() int { return domain.DefaultOrderValue }),
		LastSeen:  timeField(raw, "last_seen"),
		CreatedAt: timeField(raw, "created_at"),
	}
	if t, ok := raw["last_online_minute"].(primitive.DateTime); ok {
		local := t.Time().UTC()
		m.LastOnlineMinute = &local
	}
	return m
}

func stringField(raw bson.M, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func intField(raw bson.M, key string, fallback func() int) int {
	switch v := raw[key].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return fallback()
	}
}

func timeField(raw bson.M, key string) time.Time {
	if v, ok := raw[key].(primitive.DateTime); ok {
		return v.Time().UTC()
	}
	return time.Time{}
}

// sortMachines re-sorts after decoding so a legacy-only document (missing
// the primary field, carrying only the serial alias) still lands in the
// right position even though the $sort above used the primary field name.
func sortMachines(machines []domain.Machine, _ string) {
	s := domain.SortedMachines(machines)
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s.Less(j, j-1); j-- {
			s.Swap(j, j-1)
		}
	}
}

// ClaimRun atomically reserves (jobID, minuteUTC) for claimant (spec §4.2,
// §4.8). Duplicate-key and claimed-by-another both collapse to (false, nil).
func (g *Gateway) ClaimRun(ctx context.Context, jobID string, minuteUTC time.Time, claimant string, orderValue, position int) (bool, error) {
	filter := bson.M{
		"job_id":        jobID,
		"scheduled_for": minuteUTC,
		"claimed_by":    bson.M{"$in": []any{nil, claimant}},
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"claimed_by":              claimant,
			"claimed_at":              now,
			"executed_order_value":    orderValue,
			"executed_order_position": position,
			"status":                  domain.RunRunning,
			"start_at":                now,
		},
		"$setOnInsert": bson.M{
			"job_id":        jobID,
			"scheduled_for": minuteUTC,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var raw bson.M
	err := g.jobRuns.FindOneAndUpdate(ctx, filter, update, opts).Decode(&raw)
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, nil
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, wrap("claim run", err)
	}
	return stringField(raw, "claimed_by") == claimant, nil
}

// AppendStep appends one step log entry to an in-progress run.
func (g *Gateway) AppendStep(ctx context.Context, key domain.RunKey, step domain.StepLog) error {
	_, err := g.jobRuns.UpdateOne(ctx,
		bson.M{"job_id": key.JobID, "scheduled_for": key.ScheduledFor},
		bson.M{"$push": bson.M{"steps": step}},
	)
	if err != nil {
		return wrap("append step", err)
	}
	return nil
}

// FinalizeRun sets the terminal status and timing on a claimed run.
func (g *Gateway) FinalizeRun(ctx context.Context, key domain.RunKey, status domain.RunStatus, start, end time.Time) error {
	_, err := g.jobRuns.UpdateOne(ctx,
		bson.M{"job_id": key.JobID, "scheduled_for": key.ScheduledFor},
		bson.M{"$set": bson.M{"status": status, "start_at": start, "end_at": end}},
	)
	if err != nil {
		return wrap("finalize run", err)
	}
	return nil
}

// PollCommandsSince returns commands addressed to machineID or "all" newer
// than watermark, ascending by created_at (spec §4.2, §4.9).
func (g *Gateway) PollCommandsSince(ctx context.Context, watermark time.Time, machineID string) ([]domain.Command, error) {
	filter := bson.M{
		"target":     bson.M{"$in": []string{machineID, domain.TargetAll}},
		"created_at": bson.M{"$gt": watermark},
	}
	cur, err := g.commands.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, wrap("poll commands", err)
	}
	defer cur.Close(ctx)

	var commands []domain.Command
	if err := cur.All(ctx, &commands); err != nil {
		return nil, wrap("decode commands", err)
	}
	return commands, nil
}

// ListEnabledJobs feeds the Job Index reload (spec §4.4); it also satisfies
// jobindex.Loader.
func (g *Gateway) ListEnabledJobs(ctx context.Context) ([]domain.Job, error) {
	cur, err := g.jobs.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return nil, wrap("list enabled jobs", err)
	}
	defer cur.Close(ctx)

	var jobs []domain.Job
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, wrap("decode jobs", err)
	}
	return jobs, nil
}

func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}
