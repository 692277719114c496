package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("textlsp.scheduler")

// ErrStopped is returned when scheduling on a stopped scheduler.
var ErrStopped = errors.New("scheduler stopped")

type Task struct {
	ID      string
	Name    string
	Execute func() error
}

// NewTask returns a task with a fresh ID.
func NewTask(name string, execute func() error) Task {
	return Task{ID: uuid.NewString(), Name: name, Execute: execute}
}

// Scheduler runs tasks one at a time in the order they were scheduled.
type Scheduler struct {
	taskQueue       chan Task
	lowPriorityLock sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup

	// mu guards stopped and keeps sends from racing the queue's close.
	mu      sync.RWMutex
	stopped bool
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(queueSize int) *Scheduler {
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
	}
}

// RunScheduler starts the scheduler loop
func (s *Scheduler) RunScheduler() {
	go func() {
		for {
			select {
			case task, ok := <-s.taskQueue:
				if !ok {
					return
				}
				s.run(task)
			case <-s.stopChan:
				// Drain what was queued before the stop.
				for task := range s.taskQueue {
					log.Debugf("draining task %s (%s)", task.Name, task.ID)
					s.run(task)
				}
				return
			}
		}
	}()
}

func (s *Scheduler) run(task Task) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("task %s (%s) panicked: %v", task.Name, task.ID, r)
		}
	}()

	log.Debugf("executing task %s (%s)", task.Name, task.ID)
	start := time.Now()
	if err := task.Execute(); err != nil {
		log.Errorf("task %s (%s) failed: %v", task.Name, task.ID, err)
		return
	}
	log.Debugf("task %s (%s) done in %s", task.Name, task.ID, time.Since(start))
}

// SchedulePeriodicTask periodically queues a low-priority task, skipping a
// round when the queue is full. The first round runs right away.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, lowTask Task) {
	ticker := time.NewTicker(interval)
	enqueue := func() {
		s.lowPriorityLock.Lock()
		defer s.lowPriorityLock.Unlock()
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.stopped {
			return
		}

		s.wg.Add(1)
		select {
		case s.taskQueue <- lowTask:
			log.Debugf("scheduled %s", lowTask.Name)
		default:
			s.wg.Done()
			log.Infof("skipped scheduling %s, queue is full", lowTask.Name)
		}
	}

	go enqueue()
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				enqueue()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// ScheduleHighPriorityTask queues a task, waiting for room in the queue.
func (s *Scheduler) ScheduleHighPriorityTask(task Task) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return ErrStopped
	}
	s.wg.Add(1)
	s.taskQueue <- task
	return nil
}

// StopScheduler waits for all queued tasks to complete and stops the
// scheduler. Later calls do nothing.
func (s *Scheduler) StopScheduler() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	log.Info("stopping scheduler")
	s.stopped = true
	close(s.stopChan)
	close(s.taskQueue)
	s.mu.Unlock()

	s.wg.Wait()
	log.Info("scheduler stopped")
}
