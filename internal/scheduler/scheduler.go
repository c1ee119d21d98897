// Package scheduler serializes background maintenance work, such as index
// rebuilds, so it never races with itself.
package scheduler

import (
	"log"
	"sync"
	"time"
)

// Task is one unit of maintenance work.
type Task struct {
	Name    string
	Execute func() error
}

// Scheduler runs tasks one at a time from a bounded queue. Periodic tasks
// are skipped when the queue is full rather than piling up.
type Scheduler struct {
	taskQueue chan Task
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func New(queueSize int) *Scheduler {
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
	}
}

// Run starts the worker loop.
func (s *Scheduler) Run() {
	go func() {
		for {
			select {
			case task, ok := <-s.taskQueue:
				if !ok {
					return
				}
				s.run(task)
			case <-s.stopChan:
				// Drain what was already queued, then exit.
				for {
					select {
					case task := <-s.taskQueue:
						s.run(task)
					default:
						return
					}
				}
			}
		}
	}()
}

func (s *Scheduler) run(task Task) {
	defer s.wg.Done()
	if err := task.Execute(); err != nil {
		log.Printf("task %s: %v", task.Name, err)
	}
}

// Schedule queues a task for execution as soon as the worker is free.
func (s *Scheduler) Schedule(task Task) {
	s.wg.Add(1)
	select {
	case s.taskQueue <- task:
	case <-s.stopChan:
		s.wg.Done()
	}
}

// SchedulePeriodic re-queues a task at every interval tick. A full queue
// skips the tick.
func (s *Scheduler) SchedulePeriodic(interval time.Duration, task Task) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.wg.Add(1)
				select {
				case s.taskQueue <- task:
				default:
					s.wg.Done()
					log.Printf("skipped %s, queue is full", task.Name)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop prevents new scheduling and waits for queued tasks to finish.
// Idempotent.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}
