package model

import "time"

// Metrics accumulates record counts and phase timings for a single
// pipeline run.
type Metrics struct {
	RecordsExtracted   int
	RecordsTransformed int
	RecordsLoaded      int
	RecordsRejected    int
	RecordsDuplicates  int

	ExtractionTime     time.Duration
	TransformationTime time.Duration
	LoadingTime        time.Duration
	TotalTime          time.Duration

	BytesProcessed int64
}

// Throughput returns the loaded-records-per-second rate, or 0 when no
// time has been accumulated.
func (m *Metrics) Throughput() float64 {
	if m.TotalTime <= 0 {
		return 0
	}
	return float64(m.RecordsLoaded) / m.TotalTime.Seconds()
}

// Snapshot returns a serializable view of the metrics for logging and
// state persistence.
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"records_extracted":             m.RecordsExtracted,
		"records_transformed":           m.RecordsTransformed,
		"records_loaded":                m.RecordsLoaded,
		"records_rejected":              m.RecordsRejected,
		"records_duplicates":            m.RecordsDuplicates,
		"extraction_time_seconds":       round3(m.ExtractionTime.Seconds()),
		"transformation_time_seconds":   round3(m.TransformationTime.Seconds()),
		"loading_time_seconds":          round3(m.LoadingTime.Seconds()),
		"total_time_seconds":            round3(m.TotalTime.Seconds()),
		"bytes_processed":               m.BytesProcessed,
		"throughput_records_per_second": round3(m.Throughput()),
	}
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
