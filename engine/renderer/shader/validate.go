package shader

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/gogpu/naga"
)

// Validate compiles the shader's processed source to SPIR-V with naga and discards the output.
// A compile failure means the WGSL would also be rejected by the device, so this runs before
// any GPU object is created.
//
// Parameters:
//   - s: the shader to validate
//
// Returns:
//   - error: the naga diagnostic wrapped with the shader key, or nil
func Validate(s Shader) error {
	if _, err := naga.Compile(s.Source()); err != nil {
		return fmt.Errorf("shader %s: invalid WGSL: %w", s.Key(), err)
	}
	return nil
}

// ValidateAll validates a batch of shaders concurrently on a dynamic worker pool and joins
// every failure into one error. The pool is stopped before returning.
//
// Parameters:
//   - shaders: the shaders to validate
//   - workers: the maximum number of concurrent workers; values < 1 use one worker
//
// Returns:
//   - error: the joined validation errors in input order, or nil
func ValidateAll(shaders []Shader, workers int) error {
	if len(shaders) == 0 {
		return nil
	}
	pool := worker.NewDynamicWorkerPool(workers, len(shaders), time.Second)
	defer pool.Stop()

	errs := make([]error, len(shaders))
	var wg sync.WaitGroup
	for i, s := range shaders {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				errs[i] = Validate(s)
				return nil, errs[i]
			},
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}
