package pipeline

// BatchFunc processes one batch of records and returns the processed
// records.
type BatchFunc func(batch []interface{}) ([]interface{}, error)

// BatchProcessor applies a function to a slice of records in fixed-size
// batches, keeping memory bounded for large inputs.
type BatchProcessor struct {
	batchSize int
}

// NewBatchProcessor creates a BatchProcessor. Sizes below 1 fall back to
// a single-record batch.
func NewBatchProcessor(batchSize int) *BatchProcessor {
	if batchSize < 1 {
		batchSize = 1
	}
	return &BatchProcessor{batchSize: batchSize}
}

// Process runs processor over data in batches. onBatchComplete, when
// set, is called after each batch with the 1-based batch number and the
// running total of processed records. Processing stops at the first
// batch error.
func (bp *BatchProcessor) Process(
	data []interface{},
	processor BatchFunc,
	onBatchComplete func(batchNum, totalProcessed int),
) ([]interface{}, error) {
	results := make([]interface{}, 0, len(data))

	for i := 0; i < len(data); i += bp.batchSize {
		end := i + bp.batchSize
		if end > len(data) {
			end = len(data)
		}
		processed, err := processor(data[i:end])
		if err != nil {
			return results, err
		}
		results = append(results, processed...)

		if onBatchComplete != nil {
			onBatchComplete(i/bp.batchSize+1, len(results))
		}
	}

	return results, nil
}
