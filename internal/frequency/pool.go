package frequency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// job is one unit of remote work: a single key, or a batch of keys when the
// source supports bulk queries.
type job struct {
	Seq  int
	Keys []Key
}

// jobResult holds the resolved results of one job.
type jobResult struct {
	Seq     int
	Results map[Key]Result
}

// runPool resolves jobs using a fixed pool of workers. Results are sent to the
// returned channel in completion order, which is closed once every job is
// done. If workers is 0 or less, a single worker is used.
func runPool(ctx context.Context, jobs []job, workers int, fetch func(context.Context, []Key) map[Key]Result) <-chan jobResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	items := make(chan job)
	results := make(chan jobResult, len(jobs))

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for item := range items {
				results <- jobResult{
					Seq:     item.Seq,
					Results: fetch(ctx, item.Keys),
				}
			}
			return nil
		})
	}

	go func() {
		for _, j := range jobs {
			items <- j
		}
		close(items)
	}()

	go func() {
		g.Wait()
		close(results)
	}()

	return results
}

// chunkKeys splits keys into jobs of at most size keys each.
func chunkKeys(keys []Key, size int) []job {
	if size <= 0 {
		size = 1
	}
	jobs := make([]job, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		jobs = append(jobs, job{Seq: len(jobs), Keys: keys[start:end]})
	}
	return jobs
}
