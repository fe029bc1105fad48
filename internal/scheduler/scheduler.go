// Package scheduler 周期性后台任务运行器。
// Package scheduler runs periodic background jobs.
package scheduler

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Job 一个周期任务。
// Job is one periodic task.
type Job struct {
	Name  string
	Every time.Duration
	Fn    func() error
}

// Scheduler 每个任务一个 ticker goroutine，panic 被捕获，单次失败不影响后续
// 触发。
// Scheduler runs one ticker goroutine per job; panics are recovered and a
// single failure does not stop future ticks.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []Job
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

func New(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, stop: make(chan struct{})}
}

func (s *Scheduler) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		panic("scheduler: Add after Start")
	}
	s.jobs = append(s.jobs, job)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	for _, job := range s.jobs {
		if job.Every <= 0 || job.Fn == nil {
			continue
		}
		s.wg.Add(1)
		go s.loop(job)
	}
}

func (s *Scheduler) loop(job Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.runOne(job)
		}
	}
}

func (s *Scheduler) runOne(job Job) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "scheduler: job %s panicked: %v\n", job.Name, r)
		}
	}()
	if err := job.Fn(); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: job %s: %v\n", job.Name, err)
	}
}

// Stop 停止所有任务并等待退出。
// Stop halts every job and waits for the goroutines to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	close(s.stop)
	s.wg.Wait()
}
