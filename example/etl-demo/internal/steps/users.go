// Package steps holds the demo's step implementations: synthetic
// extraction, cleaning transforms, warehouse loads, and the report
// publisher. Option structs bind from string property maps the same way
// framework components do.
package steps

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/driftworks/cascade/example/etl-demo/internal/warehouse"
	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	step "github.com/driftworks/cascade/pkg/etl/core/step"
	configbinder "github.com/driftworks/cascade/pkg/etl/support/util/configbinder"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

var firstNames = []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan", "judy"}
var lastNames = []string{"sato", "tanaka", "suzuki", "lopez", "kim", "muller", "okafor", "novak", "rossi", "khan"}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// UserStepOptions configures the synthetic user extractor.
type UserStepOptions struct {
	// Count is how many users to generate per run.
	Count int `yaml:"count"`
	// DuplicateRate is the fraction of generated users that reuse an
	// earlier email, exercising the dedupe transform.
	DuplicateRate float64 `yaml:"duplicate_rate"`
}

// NewExtractUsers creates the Extract step generating synthetic users.
func NewExtractUsers(properties map[string]string) (step.Step, error) {
	opts := UserStepOptions{Count: 50, DuplicateRate: 0.1}
	if err := configbinder.BindProperties(properties, &opts); err != nil {
		return nil, err
	}

	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		users := make([]warehouse.User, 0, opts.Count)
		for i := 0; i < opts.Count; i++ {
			first := firstNames[rng.Intn(len(firstNames))]
			last := lastNames[rng.Intn(len(lastNames))]
			email := fmt.Sprintf("%s.%s.%d@example.com", first, last, i)
			if i > 0 && rng.Float64() < opts.DuplicateRate {
				// Reuse an earlier email, possibly with different casing.
				email = strings.ToUpper(users[rng.Intn(len(users))].Email)
			}
			users = append(users, warehouse.User{
				ID:    model.NewID(),
				Name:  capitalize(first) + " " + capitalize(last),
				Email: email,
				RunID: ec.JobID,
			})
		}
		ec.RawData = users
		ec.Metrics.RecordsExtracted += len(users)
		ec.SourceInfo["generator"] = "synthetic_users"
		ec.SourceInfo["count"] = len(users)
		logger.Debugf("Extracted %d synthetic users", len(users))
		return nil
	}

	return step.NewExtract("extract_users", execute), nil
}

// NewCleanUsers creates the Transform step normalizing and deduplicating
// users by email.
func NewCleanUsers() step.Step {
	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		users, ok := ec.RawData.([]warehouse.User)
		if !ok {
			return exception.New("clean_users", "raw data does not contain users", nil, false)
		}

		seen := make(map[string]bool, len(users))
		cleaned := make([]warehouse.User, 0, len(users))
		for _, u := range users {
			email := strings.ToLower(strings.TrimSpace(u.Email))
			if email == "" {
				ec.Metrics.RecordsRejected++
				ec.AddWarning(fmt.Sprintf("dropping user %s: empty email", u.ID))
				continue
			}
			if seen[email] {
				ec.Metrics.RecordsDuplicates++
				continue
			}
			seen[email] = true
			u.Email = email
			cleaned = append(cleaned, u)
		}

		ec.TransformedData = cleaned
		ec.Metrics.RecordsTransformed += len(cleaned)
		logger.Debugf("Cleaned users: %d kept, %d duplicates, %d rejected",
			len(cleaned), ec.Metrics.RecordsDuplicates, ec.Metrics.RecordsRejected)
		return nil
	}

	validate := func(ec *model.ExecutionContext) bool {
		return ec.RawData != nil
	}

	return step.NewTransform("clean_users", execute, step.WithValidate(validate))
}

// NewLoadUsers creates the Load step writing cleaned users into the
// warehouse. Rollback removes the rows this run wrote.
func NewLoadUsers(wh *warehouse.Warehouse) step.Step {
	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		users, ok := ec.TransformedData.([]warehouse.User)
		if !ok {
			return exception.New("load_users", "transformed data does not contain users", nil, false)
		}
		if err := wh.InsertUsers(ctx, users); err != nil {
			return err
		}
		ec.LoadedCount += len(users)
		ec.Metrics.RecordsLoaded += len(users)
		ec.TargetInfo["table"] = warehouse.User{}.TableName()
		return nil
	}

	validate := func(ec *model.ExecutionContext) bool {
		return ec.TransformedData != nil
	}

	rollback := func(ec *model.ExecutionContext) {
		if err := wh.DeleteUsersByRun(context.Background(), ec.JobID); err != nil {
			logger.Warnf("load_users rollback failed: %v", err)
		}
	}

	return step.NewLoad("load_users", execute, step.WithValidate(validate), step.WithRollback(rollback))
}
