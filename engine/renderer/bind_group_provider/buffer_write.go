package bind_group_provider

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// WriteBuffers queues every write in order. Each write is checked against the size of its
// target buffer first; a write that does not fit is never issued.
//
// Parameters:
//   - queue: the queue to write through
//   - writes: the writes to queue
//
// Returns:
//   - error: error naming the first write that has no provider or target buffer, or does not fit
func WriteBuffers(queue gpu.Queue, writes []BufferWrite) error {
	for i, w := range writes {
		if w.Provider == nil {
			return fmt.Errorf("write %d: no provider", i)
		}
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			return fmt.Errorf("%s: no buffer at binding %d", w.Provider.Label(), w.Binding)
		}
		if !gpu.Fits(w.Offset, len(w.Data), buf.Size()) {
			return fmt.Errorf("%s: write of %d bytes at offset %d exceeds binding %d size %d",
				w.Provider.Label(), len(w.Data), w.Offset, w.Binding, buf.Size())
		}
		if err := queue.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return fmt.Errorf("%s: %w", w.Provider.Label(), err)
		}
	}
	return nil
}
