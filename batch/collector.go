package batch

import "sync"

// FileError is one per-file failure forwarded to an error consumer.
type FileError struct {
	Path string
	Err  error
}

// ErrorCollector batches per-file errors for a consumer. Errors
// accumulate in a bounded pending queue and are forwarded when the
// queue reaches the batch size or on Flush. The collector is
// synchronous: the consumer runs on the reporting goroutine, under no
// lock.
type ErrorCollector struct {
	mu        sync.Mutex
	batchSize int
	pending   []FileError
	consumer  func([]FileError)
}

func NewErrorCollector(batchSize int, consumer func([]FileError)) *ErrorCollector {
	if batchSize < 1 {
		batchSize = 1
	}
	return &ErrorCollector{
		batchSize: batchSize,
		consumer:  consumer,
	}
}

func (c *ErrorCollector) Report(fe FileError) {
	c.mu.Lock()
	c.pending = append(c.pending, fe)
	var batch []FileError
	if len(c.pending) >= c.batchSize {
		batch = c.pending
		c.pending = nil
	}
	c.mu.Unlock()

	if batch != nil && c.consumer != nil {
		c.consumer(batch)
	}
}

// Flush forwards whatever is pending, regardless of batch size.
func (c *ErrorCollector) Flush() {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) > 0 && c.consumer != nil {
		c.consumer(batch)
	}
}
