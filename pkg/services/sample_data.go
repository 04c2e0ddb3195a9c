package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
)

// Sample table location and generator parameters.
const (
	SampleDataset    = "sessions"
	SampleTable      = "user_activity"
	SampleSeed       = 42
	SampleUsers      = 500
	sampleWindowDays = 90
	sampleBatchSize  = 500
)

// ActivityEvent is one row of the sample activity table. Amount is set for
// purchases only.
type ActivityEvent struct {
	UserID    string
	EventTime time.Time
	EventType string
	Amount    *float64
}

var sampleEventTypes = []struct {
	name   string
	weight float64
}{
	{"login", 0.25},
	{"purchase", 0.10},
	{"view", 0.40},
	{"signup", 0.05},
	{"logout", 0.20},
}

// GenerateSampleActivity builds the sample events for the 90 days before
// end, ordered by event time. The same seed and end give the same rows.
func GenerateSampleActivity(end time.Time, seed uint64) []ActivityEvent {
	rng := rand.New(rand.NewPCG(seed, seed))
	end = end.UTC().Truncate(time.Minute)
	start := end.AddDate(0, 0, -sampleWindowDays)

	var events []ActivityEvent
	for i := 1; i <= SampleUsers; i++ {
		userID := fmt.Sprintf("user_%04d", i)
		numEvents := 5 + rng.IntN(46)
		userStart := start.AddDate(0, 0, rng.IntN(60))
		spanDays := int(end.Sub(userStart).Hours() / 24)

		for range numEvents {
			at := userStart.
				AddDate(0, 0, rng.IntN(spanDays+1)).
				Add(time.Duration(rng.IntN(24))*time.Hour + time.Duration(rng.IntN(60))*time.Minute)

			event := ActivityEvent{UserID: userID, EventTime: at, EventType: pickEventType(rng)}
			if event.EventType == "purchase" {
				amount := float64(int((10+rng.Float64()*490)*100)) / 100
				event.Amount = &amount
			}
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventTime.Before(events[j].EventTime)
	})
	return events
}

func pickEventType(rng *rand.Rand) string {
	r := rng.Float64()
	for _, t := range sampleEventTypes {
		if r < t.weight {
			return t.name
		}
		r -= t.weight
	}
	return sampleEventTypes[len(sampleEventTypes)-1].name
}

// SampleTarget is a warehouse the sample table can be written to.
type SampleTarget interface {
	warehouse.StatementExecutor
	QuoteIdentifier(name string) string
	Type() string
}

// LoadSampleActivity replaces dataset.table in target with events. Rows are
// written as literal multi-row inserts so one code path serves every dialect.
func LoadSampleActivity(ctx context.Context, target SampleTarget, events []ActivityEvent, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sample-data")

	dataset := target.QuoteIdentifier(SampleDataset)
	table := dataset + "." + target.QuoteIdentifier(SampleTable)

	for _, stmt := range sampleDDL(target.Type(), SampleDataset, dataset, table) {
		if err := target.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare %s.%s: %w", SampleDataset, SampleTable, err)
		}
	}

	for offset := 0; offset < len(events); offset += sampleBatchSize {
		batch := events[offset:min(offset+sampleBatchSize, len(events))]
		if err := target.Exec(ctx, insertStatement(table, batch)); err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", offset, offset+len(batch), err)
		}
		logger.Debug("Inserted sample batch", zap.Int("offset", offset), zap.Int("rows", len(batch)))
	}

	logger.Info("Loaded sample activity",
		zap.String("table", SampleDataset+"."+SampleTable),
		zap.Int("rows", len(events)))
	return nil
}

func sampleDDL(warehouseType, rawDataset, dataset, table string) []string {
	if warehouseType == "mssql" {
		return []string{
			fmt.Sprintf("IF SCHEMA_ID('%s') IS NULL EXEC('CREATE SCHEMA %s')", rawDataset, dataset),
			"DROP TABLE IF EXISTS " + table,
			"CREATE TABLE " + table + " (user_id VARCHAR(32), event_time DATETIME2, event_type VARCHAR(16), amount DECIMAL(10,2))",
		}
	}
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + dataset,
		"DROP TABLE IF EXISTS " + table,
		"CREATE TABLE " + table + " (user_id VARCHAR(32), event_time TIMESTAMP, event_type VARCHAR(16), amount DECIMAL(10,2))",
	}
}

// insertStatement renders generated values only, never user input.
func insertStatement(table string, batch []ActivityEvent) string {
	var b strings.Builder
	b.WriteString("INSERT INTO " + table + " (user_id, event_time, event_type, amount) VALUES ")
	for i, e := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		amount := "NULL"
		if e.Amount != nil {
			amount = strconv.FormatFloat(*e.Amount, 'f', 2, 64)
		}
		fmt.Fprintf(&b, "('%s', '%s', '%s', %s)",
			e.UserID, e.EventTime.Format("2006-01-02 15:04:05"), e.EventType, amount)
	}
	return b.String()
}
