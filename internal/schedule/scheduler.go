package schedule

import (
	"container/heap"
	"sync"
	"time"
)

// Task is a callback scheduled for a future instant.
type Task struct {
	ID    string
	RunAt time.Time
	Fn    func()
	index int
}

// taskHeap is a min-heap of Tasks ordered by RunAt.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].RunAt.Before(h[j].RunAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	task := x.(*Task)
	task.index = len(*h)
	*h = append(*h, task)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*h = old[0 : n-1]
	return task
}

// Scheduler runs callbacks at scheduled instants. Poll ticks and
// reconciliation kickoffs register here and reschedule themselves from
// inside their own callback. Each callback runs on its own goroutine so a
// slow store write never delays the next due task.
type Scheduler struct {
	heap    taskHeap
	tasks   map[string]*Task
	mu      sync.Mutex
	wakeup  chan struct{}
	stopCh  chan struct{}
	stopped bool
}

// NewScheduler creates a stopped-clean scheduler; call Start to run it.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		heap:   make(taskHeap, 0),
		tasks:  make(map[string]*Task),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// Start launches the scheduling loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop halts the loop. Already-dispatched callbacks finish on their own
// goroutines; pending tasks are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
}

// Schedule registers fn to run at runAt. Scheduling an ID that is already
// pending replaces the earlier entry.
func (s *Scheduler) Schedule(id string, runAt time.Time, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	if existing, ok := s.tasks[id]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.tasks, id)
	}

	task := &Task{ID: id, RunAt: runAt, Fn: fn}
	heap.Push(&s.heap, task)
	s.tasks[id] = task

	// Wake the loop if this became the earliest task.
	if s.heap[0] == task {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}
	return nil
}

// Cancel removes a pending task. Returns false when no such task exists.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, task.index)
	delete(s.tasks, id)
	return true
}

// Pending returns the number of scheduled tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}

		var wait time.Duration
		if s.heap.Len() == 0 {
			wait = 24 * time.Hour
		} else {
			next := s.heap[0]
			wait = time.Until(next.RunAt)
			if wait <= 0 {
				task := heap.Pop(&s.heap).(*Task)
				delete(s.tasks, task.ID)
				s.mu.Unlock()

				go task.Fn()
				continue
			}
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wakeup:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

var ErrSchedulerStopped = &SchedulerError{"scheduler is stopped"}

// SchedulerError represents a scheduling error.
type SchedulerError struct {
	msg string
}

func (e *SchedulerError) Error() string {
	return e.msg
}
