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

package periodicjobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/redhat-data-and-ai/classroster/pkg/logger"
	"github.com/redhat-data-and-ai/classroster/pkg/store"
)

const (
	// OrphanCleanupJobName is the unique identifier for the orphan cleanup periodic job.
	OrphanCleanupJobName = "classroster_orphan_cleanup"

	// DefaultOrphanCleanupInterval defines how often the orphan cleanup job runs
	// when no interval is configured.
	DefaultOrphanCleanupInterval = 10 * time.Minute
)

// OrphanCleaner repairs students whose group names no existing class.
type OrphanCleaner interface {
	CleanupOrphanedStudents(ctx context.Context) int
}

// OrphanCleanupJob implements a periodic sweep that reassigns orphaned students.
//
// Auto-cleanup only reacts to class changes this process observes. The sweep
// closes the remaining windows:
//  1. Flushes pending writes and reloads both collections from the shared store
//  2. Runs the orphan cleanup against the fresh collections
//  3. Logs how many students were moved
//
// Reloading first matters when cross-context sync is off or a change
// notification was dropped, e.g. a class renamed in another context.
type OrphanCleanupJob struct {

	// classes and students are reloaded from the store before every sweep
	classes  store.ClassStoreInterface
	students store.StudentStoreInterface

	// cleaner performs the actual reassignment, normally the integrity manager
	cleaner OrphanCleaner

	interval time.Duration
}

// NewOrphanCleanupJob creates and initializes a new OrphanCleanupJob instance.
//
// Parameters:
//   - interval: Delay between sweeps; zero or negative disables the job
//   - classes: Class collection store
//   - students: Student collection store
//   - cleaner: Component that reassigns orphaned students
//
// Returns:
//   - *OrphanCleanupJob: A configured job instance
func NewOrphanCleanupJob(
	interval time.Duration,
	classes store.ClassStoreInterface,
	students store.StudentStoreInterface,
	cleaner OrphanCleaner,
) *OrphanCleanupJob {
	return &OrphanCleanupJob{
		classes:  classes,
		students: students,
		cleaner:  cleaner,
		interval: interval,
	}
}

// AddToPeriodicTaskManager registers this job with the provided periodic task manager.
//
// Parameters:
//   - mgr: The PeriodicTaskManager instance to register this job with
func (j *OrphanCleanupJob) AddToPeriodicTaskManager(mgr *PeriodicTaskManager) {
	mgr.AddTask(j)
}

// GetInterval returns the execution interval for this periodic job.
func (j *OrphanCleanupJob) GetInterval() time.Duration {
	return j.interval
}

// GetName returns the unique name identifier for this periodic job.
func (j *OrphanCleanupJob) GetName() string {
	return OrphanCleanupJobName
}

// Run executes one sweep.
//
// Parameters:
//   - ctx: Context for cancellation and logging
//
// Returns:
//   - error: Always nil; failures are reported through logs since the cleanup
//     itself never fails past its boundary
func (j *OrphanCleanupJob) Run(ctx context.Context) error {
	ctx = logger.WithRequestId(ctx, uuid.New().String())
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"job": OrphanCleanupJobName,
	})
	log.Info("Starting orphan cleanup job")

	// persist local pending writes so the reload does not drop them
	j.classes.Flush(ctx)
	j.students.Flush(ctx)

	classes := j.classes.Refresh(ctx)
	students := j.students.Refresh(ctx)

	moved := j.cleaner.CleanupOrphanedStudents(ctx)

	log.WithFields(logrus.Fields{
		"classes":       len(classes),
		"totalStudents": len(students),
		"movedStudents": moved,
	}).Info("Orphan cleanup job completed")

	return nil
}
