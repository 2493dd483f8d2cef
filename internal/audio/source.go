// Package audio provides the block sources that feed the engine.
package audio

import "context"

// Source delivers mono float32 blocks to process until ctx is done or the
// input is exhausted. process runs on the source's own goroutine or driver
// thread and must not block. Run returns only after the stream has stopped.
type Source interface {
	Run(ctx context.Context, process func(block []float32)) error
}
