package encmat

import (
	"fmt"
	"runtime"
)

// Job is one evaluation-only operation, e.g. a closure over
// Context.EvalMatMulSquare. Jobs must not generate keys.
type Job[C any] func() (C, error)

type jobResult[C any] struct {
	index int
	ct    C
	err   error
}

func evalWorker[C any](jobs []Job[C], job_channel <-chan int, return_channel chan<- jobResult[C]) {
	for i := range job_channel {
		ct, err := jobs[i]()
		return_channel <- jobResult[C]{index: i, ct: ct, err: err}
	}
}

// EvalConcurrent runs jobs on up to workers goroutines and returns the
// results in job order. workers <= 0 uses one worker per CPU. If any job
// fails, the error of the lowest failing index is returned.
func EvalConcurrent[C any](workers int, jobs []Job[C]) ([]C, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	job_channel := make(chan int)
	return_channel := make(chan jobResult[C])
	for w := 0; w < workers; w++ {
		go evalWorker(jobs, job_channel, return_channel)
	}
	go func() {
		for i := range jobs {
			job_channel <- i
		}
		close(job_channel)
	}()

	results := make([]C, len(jobs))
	failed := -1
	var err error
	for range jobs {
		res := <-return_channel
		results[res.index] = res.ct
		if res.err != nil && (failed < 0 || res.index < failed) {
			failed = res.index
			err = fmt.Errorf("job %d: %w", res.index, res.err)
		}
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}
