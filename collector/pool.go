package collector

import (
	"context"
)

type procResult struct {
	info ProcessInfo
	err  error
}

func worker(ctx context.Context, src HostSource, jobs <-chan int32, results chan<- procResult) {
	for pid := range jobs {
		info, err := src.Process(ctx, pid)
		results <- procResult{info: info, err: err}
	}
}

// scanProcesses inspects every pid on a pool of workers. Processes that fail
// inspection are counted in skipped and left out of the result.
func scanProcesses(ctx context.Context, src HostSource, pids []int32, workers int) (infos []ProcessInfo, skipped int) {
	numJobs := len(pids)
	if numJobs == 0 {
		return []ProcessInfo{}, 0
	}
	if workers > numJobs {
		workers = numJobs
	}

	jobs := make(chan int32, numJobs)
	results := make(chan procResult, numJobs)

	for w := 1; w <= workers; w++ {
		go worker(ctx, src, jobs, results)
	}

	for _, pid := range pids {
		jobs <- pid
	}
	close(jobs)

	infos = make([]ProcessInfo, 0, numJobs)
	for a := 1; a <= numJobs; a++ {
		r := <-results
		if r.err != nil {
			skipped++
			continue
		}
		infos = append(infos, r.info)
	}
	return infos, skipped
}
