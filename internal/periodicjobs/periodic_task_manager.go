/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package periodicjobs provides scheduled background jobs for the classroster service.
//
// This file implements the task manager that runs every registered job on its own
// ticker until the surrounding context is cancelled.
package periodicjobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/redhat-data-and-ai/classroster/pkg/logger"
)

// PeriodicTask is a unit of background work executed at a fixed interval.
type PeriodicTask interface {
	// GetName returns a unique, human-readable identifier used in logs.
	GetName() string

	// GetInterval returns the delay between two executions.
	GetInterval() time.Duration

	// Run executes the task once. A returned error is logged and does not stop
	// further executions.
	Run(ctx context.Context) error
}

// PeriodicTaskManager runs registered tasks until its context ends.
type PeriodicTaskManager struct {
	mu    sync.Mutex
	tasks []PeriodicTask
	wg    sync.WaitGroup
}

// NewPeriodicTaskManager creates an empty PeriodicTaskManager.
func NewPeriodicTaskManager() *PeriodicTaskManager {
	return &PeriodicTaskManager{}
}

// AddTask registers task. Tasks with a non-positive interval are ignored.
//
// Parameters:
//   - task: The task to schedule
func (m *PeriodicTaskManager) AddTask(task PeriodicTask) {
	if task.GetInterval() <= 0 {
		logger.Logger(context.Background()).WithField("job", task.GetName()).
			Info("Periodic job disabled, interval is not positive")
		return
	}

	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()
}

// Tasks returns the names of the registered tasks.
func (m *PeriodicTaskManager) Tasks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.tasks))
	for _, t := range m.tasks {
		names = append(names, t.GetName())
	}
	return names
}

// Start launches one goroutine per registered task and blocks until ctx is
// cancelled and every task has returned.
//
// Each task runs first after one full interval, never concurrently with itself.
//
// Parameters:
//   - ctx: Context whose cancellation stops all tasks
//
// Returns:
//   - error: Always nil; present so Start can run under an errgroup
func (m *PeriodicTaskManager) Start(ctx context.Context) error {
	m.mu.Lock()
	tasks := append([]PeriodicTask(nil), m.tasks...)
	m.mu.Unlock()

	log := logger.Logger(ctx)
	log.WithField("count", len(tasks)).Info("Starting periodic task manager")

	for _, task := range tasks {
		m.wg.Add(1)
		go m.runTask(ctx, task)
	}

	<-ctx.Done()
	m.wg.Wait()
	log.Info("Periodic task manager stopped")
	return nil
}

func (m *PeriodicTaskManager) runTask(ctx context.Context, task PeriodicTask) {
	defer m.wg.Done()

	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"job":      task.GetName(),
		"interval": task.GetInterval().String(),
	})

	ticker := time.NewTicker(task.GetInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := task.Run(ctx); err != nil {
				log.WithError(err).Error("Periodic job failed")
				continue
			}
			log.WithField("duration", time.Since(start).String()).Debug("Periodic job finished")
		}
	}
}
