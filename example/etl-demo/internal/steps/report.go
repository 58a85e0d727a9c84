package steps

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/driftworks/cascade/example/etl-demo/internal/warehouse"
	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	step "github.com/driftworks/cascade/pkg/etl/core/step"
	configbinder "github.com/driftworks/cascade/pkg/etl/support/util/configbinder"
	exception "github.com/driftworks/cascade/pkg/etl/support/util/exception"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// ReportOptions configures the report publisher.
type ReportOptions struct {
	// Path is where the JSON report is written.
	Path string `yaml:"path"`
	// TopN bounds how many most-active users the report lists.
	TopN int `yaml:"top_n"`
}

// activityReport is the published JSON document.
type activityReport struct {
	GeneratedAt time.Time            `json:"generated_at"`
	TotalUsers  int                  `json:"total_users"`
	TotalEvents int                  `json:"total_events"`
	TopUsers    []warehouse.Activity `json:"top_users"`
}

// NewPublishReport creates the Custom step summarizing the activity
// table into a JSON report file. Rollback removes the report.
func NewPublishReport(wh *warehouse.Warehouse, properties map[string]string) (step.Step, error) {
	opts := ReportOptions{Path: "activity_report.json", TopN: 10}
	if err := configbinder.BindProperties(properties, &opts); err != nil {
		return nil, err
	}

	execute := func(ctx context.Context, ec *model.ExecutionContext) error {
		rows, err := wh.ListActivity(ctx)
		if err != nil {
			return err
		}

		report := activityReport{
			GeneratedAt: time.Now().UTC(),
			TotalUsers:  len(rows),
		}
		for _, r := range rows {
			report.TotalEvents += r.EventCount
		}
		top := opts.TopN
		if top > len(rows) {
			top = len(rows)
		}
		report.TopUsers = rows[:top]

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return exception.New("publish_report", "failed to marshal report", err, false)
		}
		if err := os.WriteFile(opts.Path, data, 0o644); err != nil {
			return exception.New("publish_report", "failed to write report file", err, true)
		}

		ec.LoadedCount++
		ec.Metrics.RecordsLoaded += len(rows)
		ec.Metrics.BytesProcessed += int64(len(data))
		ec.TargetInfo["report_path"] = opts.Path
		logger.Infof("Published activity report to %s (%d users, %d events)", opts.Path, report.TotalUsers, report.TotalEvents)
		return nil
	}

	rollback := func(ec *model.ExecutionContext) {
		if err := os.Remove(opts.Path); err != nil && !os.IsNotExist(err) {
			logger.Warnf("publish_report rollback failed: %v", err)
		}
	}

	return step.NewCustom("publish_report", execute, step.WithRollback(rollback)), nil
}
