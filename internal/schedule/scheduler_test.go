package schedule

import (
	"sync"
	"testing"
	"time"
)

func TestScheduler_Schedule(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	executed := false
	var mu sync.Mutex

	err := s.Schedule("test1", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		executed = true
		mu.Unlock()
	})

	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if !executed {
		t.Error("Task was not executed")
	}
	mu.Unlock()
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	executed := false
	var mu sync.Mutex

	err := s.Schedule("test1", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		executed = true
		mu.Unlock()
	})

	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	// Cancel the task
	cancelled := s.Cancel("test1")
	if !cancelled {
		t.Error("Cancel returned false")
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if executed {
		t.Error("Task was executed despite being cancelled")
	}
	mu.Unlock()

	if s.Cancel("nope") {
		t.Error("Cancel returned true for an unknown task")
	}
}

func TestScheduler_MultipleTasksOrdering(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var results []int
	var mu sync.Mutex

	// Schedule tasks in reverse order
	s.Schedule("task3", time.Now().Add(150*time.Millisecond), func() {
		mu.Lock()
		results = append(results, 3)
		mu.Unlock()
	})

	s.Schedule("task1", time.Now().Add(50*time.Millisecond), func() {
		mu.Lock()
		results = append(results, 1)
		mu.Unlock()
	})

	s.Schedule("task2", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		results = append(results, 2)
		mu.Unlock()
	})

	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}
	if len(results) == 3 && (results[0] != 1 || results[1] != 2 || results[2] != 3) {
		t.Errorf("Tasks executed in wrong order: %v", results)
	}
	mu.Unlock()
}

func TestScheduler_RescheduleExisting(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	count := 0
	var mu sync.Mutex

	// Schedule a task
	s.Schedule("test1", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	// Reschedule with same ID (should replace)
	s.Schedule("test1", time.Now().Add(50*time.Millisecond), func() {
		mu.Lock()
		count += 10
		mu.Unlock()
	})

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if count != 10 {
		t.Errorf("Expected count=10 (only second task), got %d", count)
	}
	mu.Unlock()
}

func TestScheduler_Pending(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	s.Schedule("task1", time.Now().Add(1*time.Hour), func() {})
	s.Schedule("task2", time.Now().Add(2*time.Hour), func() {})
	s.Schedule("task3", time.Now().Add(3*time.Hour), func() {})

	if got := s.Pending(); got != 3 {
		t.Errorf("Expected 3 pending tasks, got %d", got)
	}

	s.Cancel("task2")
	if got := s.Pending(); got != 2 {
		t.Errorf("Expected 2 pending tasks after cancel, got %d", got)
	}
}

func TestScheduler_ScheduleAfterStop(t *testing.T) {
	s := NewScheduler()
	s.Start()
	s.Stop()

	err := s.Schedule("late", time.Now(), func() {})
	if err != ErrSchedulerStopped {
		t.Errorf("Schedule after Stop = %v, want ErrSchedulerStopped", err)
	}
}
