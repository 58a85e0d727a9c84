package steps

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/driftworks/cascade/example/etl-demo/internal/warehouse"
	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	step "github.com/driftworks/cascade/pkg/etl/core/step"
	configbinder "github.com/driftworks/cascade/pkg/etl/support/util/configbinder"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

var knownActions = []string{"login", "view", "purchase", "logout"}

// EventStepOptions configures the synthetic event extractor.
type EventStepOptions struct {
	// Count is how many events to generate per run.
	Count int `yaml:"count"`
	// LookbackHours bounds how far in the past events are stamped.
	LookbackHours int `yaml:"lookback_hours"`
}

// NewExtractEvents creates the Extract step generating synthetic events
// against the users already loaded into the warehouse.
func NewExtractEvents(wh *warehouse.Warehouse, properties map[string]string) (step.Step, error) {
	opts := EventStepOptions{Count: 200, LookbackHours: 72}
	if err := configbinder.BindProperties(properties, &opts); err != nil {
		return nil, err
	}

	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		users, err := wh.ListUsers(ctx)
		if err != nil {
			return err
		}
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		now := time.Now().UTC()

		events := make([]warehouse.Event, 0, opts.Count)
		for i := 0; i < opts.Count; i++ {
			var email string
			if len(users) > 0 && rng.Float64() < 0.95 {
				email = users[rng.Intn(len(users))].Email
			} else {
				// A few orphan events with no matching user; the merge
				// job rejects these.
				email = fmt.Sprintf("ghost.%d@example.com", i)
			}
			events = append(events, warehouse.Event{
				ID:         model.NewID(),
				UserEmail:  email,
				Action:     knownActions[rng.Intn(len(knownActions))],
				OccurredAt: now.Add(-time.Duration(rng.Intn(opts.LookbackHours*3600)) * time.Second),
				RunID:      ec.JobID,
			})
		}
		ec.RawData = events
		ec.Metrics.RecordsExtracted += len(events)
		ec.SourceInfo["generator"] = "synthetic_events"
		ec.SourceInfo["count"] = len(events)
		logger.Debugf("Extracted %d synthetic events", len(events))
		return nil
	}

	return step.NewExtract("extract_events", execute), nil
}

// NewCleanEvents creates the Transform step dropping events with unknown
// actions or missing timestamps.
func NewCleanEvents() step.Step {
	valid := make(map[string]bool, len(knownActions))
	for _, a := range knownActions {
		valid[a] = true
	}

	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		events, ok := ec.RawData.([]warehouse.Event)
		if !ok {
			return exception.New("clean_events", "raw data does not contain events", nil, false)
		}

		cleaned := make([]warehouse.Event, 0, len(events))
		for _, e := range events {
			if !valid[e.Action] || e.OccurredAt.IsZero() {
				ec.Metrics.RecordsRejected++
				continue
			}
			cleaned = append(cleaned, e)
		}

		ec.TransformedData = cleaned
		ec.Metrics.RecordsTransformed += len(cleaned)
		logger.Debugf("Cleaned events: %d kept, %d rejected", len(cleaned), ec.Metrics.RecordsRejected)
		return nil
	}

	validate := func(ec *model.ExecutionContext) bool {
		return ec.RawData != nil
	}

	return step.NewTransform("clean_events", execute, step.WithValidate(validate))
}

// NewLoadEvents creates the Load step writing cleaned events into the
// warehouse. Rollback removes the rows this run wrote.
func NewLoadEvents(wh *warehouse.Warehouse) step.Step {
	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		events, ok := ec.TransformedData.([]warehouse.Event)
		if !ok {
			return exception.New("load_events", "transformed data does not contain events", nil, false)
		}
		if err := wh.InsertEvents(ctx, events); err != nil {
			return err
		}
		ec.LoadedCount += len(events)
		ec.Metrics.RecordsLoaded += len(events)
		ec.TargetInfo["table"] = warehouse.Event{}.TableName()
		return nil
	}

	validate := func(ec *model.ExecutionContext) bool {
		return ec.TransformedData != nil
	}

	rollback := func(ec *model.ExecutionContext) {
		if err := wh.DeleteEventsByRun(context.Background(), ec.JobID); err != nil {
			logger.Warnf("load_events rollback failed: %v", err)
		}
	}

	return step.NewLoad("load_events", execute, step.WithValidate(validate), step.WithRollback(rollback))
}
