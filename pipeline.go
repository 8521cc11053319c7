package feather2d

import "sync"

// task applies fn to every element of data. Elements are cut into contiguous runs, one per
// goroutine, and task returns once every run is done. fn may only write to its own element.
// A single worker, or a single element, runs on the calling goroutine.
func task[T any](workers int, data []T, fn func(data T)) {
	n := len(data)
	if workers <= 1 || n <= 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	run := (n + min(workers, n) - 1) / min(workers, n)

	var wg sync.WaitGroup
	for start := 0; start < n; start += run {
		part := data[start:min(start+run, n)]
		wg.Go(func() {
			for _, d := range part {
				fn(d)
			}
		})
	}
	wg.Wait()
}
