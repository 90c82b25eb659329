// Package queue holds the work queue of a run: the source files listed once at
// startup, handed out to workers one at a time.
//
// The queue is a buffered channel filled and closed before any worker starts.
// A claim is a receive, so each path is delivered to exactly one caller no
// matter how many workers are claiming concurrently.
package queue

// Queue is the set of file paths discovered at scan time.
type Queue struct {
	paths chan string
	size  int
}

// New builds a queue holding paths in order.
func New(paths []string) *Queue {
	ch := make(chan string, len(paths))
	for _, p := range paths {
		ch <- p
	}
	close(ch)
	return &Queue{paths: ch, size: len(paths)}
}

// Claim returns the next unclaimed path. ok is false once the queue is exhausted.
func (q *Queue) Claim() (path string, ok bool) {
	path, ok = <-q.paths
	return path, ok
}

// Len returns the number of paths not yet claimed.
func (q *Queue) Len() int {
	return len(q.paths)
}

// Size returns the number of paths the queue was built with.
func (q *Queue) Size() int {
	return q.size
}
