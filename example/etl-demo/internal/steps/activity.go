package steps

import (
	"context"

	"github.com/driftworks/cascade/example/etl-demo/internal/warehouse"
	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	step "github.com/driftworks/cascade/pkg/etl/core/step"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// mergeInput carries the two source tables through the merge pipeline.
type mergeInput struct {
	Users  []warehouse.User
	Events []warehouse.Event
}

// NewExtractActivitySources creates the Extract step reading users and
// events back out of the warehouse for merging.
func NewExtractActivitySources(wh *warehouse.Warehouse) step.Step {
	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		users, err := wh.ListUsers(ctx)
		if err != nil {
			return err
		}
		events, err := wh.ListEvents(ctx)
		if err != nil {
			return err
		}
		ec.RawData = mergeInput{Users: users, Events: events}
		ec.Metrics.RecordsExtracted += len(users) + len(events)
		ec.SourceInfo["users"] = len(users)
		ec.SourceInfo["events"] = len(events)
		return nil
	}

	return step.NewExtract("extract_activity_sources", execute)
}

// NewBuildActivity creates the Transform step joining events onto users
// by email. Events without a matching user are rejected.
func NewBuildActivity() step.Step {
	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		input, ok := ec.RawData.(mergeInput)
		if !ok {
			return exception.New("build_activity", "raw data does not contain merge input", nil, false)
		}

		byEmail := make(map[string]*warehouse.Activity, len(input.Users))
		order := make([]string, 0, len(input.Users))
		for _, u := range input.Users {
			if _, exists := byEmail[u.Email]; exists {
				continue
			}
			byEmail[u.Email] = &warehouse.Activity{UserEmail: u.Email, UserName: u.Name}
			order = append(order, u.Email)
		}

		for _, e := range input.Events {
			row, ok := byEmail[e.UserEmail]
			if !ok {
				ec.Metrics.RecordsRejected++
				continue
			}
			row.EventCount++
			if e.OccurredAt.After(row.LastSeenAt) {
				row.LastSeenAt = e.OccurredAt
				row.LastAction = e.Action
			}
		}

		rows := make([]warehouse.Activity, 0, len(order))
		for _, email := range order {
			rows = append(rows, *byEmail[email])
		}

		ec.TransformedData = rows
		ec.Metrics.RecordsTransformed += len(rows)
		logger.Debugf("Built %d activity rows (%d orphan events rejected)", len(rows), ec.Metrics.RecordsRejected)
		return nil
	}

	validate := func(ec *model.ExecutionContext) bool {
		input, ok := ec.RawData.(mergeInput)
		return ok && len(input.Users) > 0
	}

	return step.NewTransform("build_activity", execute, step.WithValidate(validate))
}

// NewLoadActivity creates the Load step replacing the activity table
// with the freshly merged rows. Rollback empties the table.
func NewLoadActivity(wh *warehouse.Warehouse) step.Step {
	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		rows, ok := ec.TransformedData.([]warehouse.Activity)
		if !ok {
			return exception.New("load_activity", "transformed data does not contain activity rows", nil, false)
		}
		if err := wh.ReplaceActivity(ctx, rows); err != nil {
			return err
		}
		ec.LoadedCount += len(rows)
		ec.Metrics.RecordsLoaded += len(rows)
		ec.TargetInfo["table"] = warehouse.Activity{}.TableName()
		return nil
	}

	validate := func(ec *model.ExecutionContext) bool {
		return ec.TransformedData != nil
	}

	rollback := func(ec *model.ExecutionContext) {
		if err := wh.TruncateActivity(context.Background()); err != nil {
			logger.Warnf("load_activity rollback failed: %v", err)
		}
	}

	return step.NewLoad("load_activity", execute, step.WithValidate(validate), step.WithRollback(rollback))
}
