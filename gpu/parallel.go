package gpu

import (
	"runtime"
	"sync"
)

// parallelize splits [0,n) into contiguous chunks and runs work on each chunk
// from its own goroutine, blocking until all chunks are done. Kernels are
// data-parallel across the extended domain, so this is the host stand-in for
// a device launch. The pack's provers keep an equivalent helper in their
// internal packages.
func parallelize(n int, work func(start, end int)) {
	nbTasks := runtime.NumCPU()
	if nbTasks > n {
		nbTasks = n
	}
	if nbTasks <= 1 {
		if n > 0 {
			work(0, n)
		}
		return
	}

	chunk := n / nbTasks
	var wg sync.WaitGroup
	for i := 0; i < nbTasks; i++ {
		start := i * chunk
		end := start + chunk
		if i == nbTasks-1 {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			work(start, end)
		}(start, end)
	}
	wg.Wait()
}
