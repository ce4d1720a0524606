package jobs

import (
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// loopSchedule restarts plain jobs once their previous run finished.
const loopSchedule = "@every 1s"

// Job is run again every second once the previous run finished.
type Job interface {
	Name() string
	Run()
}

// CronJob is run on its cron schedule. Overlapping runs are skipped.
type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs jobs on a shared cron. A job never runs concurrently
// with itself.
type TaskExecutor struct {
	cron     *cron.Cron
	jobs     []Job
	cronJobs []CronJob
	running  mapset.Set[string]
	mu       sync.Mutex
}

func NewTaskExecutor(jobs []Job, cronJobs []CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:     cron.New(),
		jobs:     jobs,
		cronJobs: cronJobs,
		running:  mapset.NewThreadUnsafeSet[string](),
	}
}

// Run schedules the jobs and starts the cron in its own goroutine.
func (t *TaskExecutor) Run() error {
	for _, job := range t.cronJobs {
		if err := t.schedule(job.Schedule(), job, true); err != nil {
			return err
		}
		logrus.Infof("scheduled task %s: %s", job.Name(), job.Schedule())
	}

	for _, job := range t.jobs {
		if err := t.schedule(loopSchedule, job, false); err != nil {
			return err
		}
	}

	t.cron.Start()

	return nil
}

func (t *TaskExecutor) schedule(spec string, job Job, warn bool) error {
	err := t.cron.AddFunc(spec, func() {
		if !t.acquire(job.Name()) {
			if warn {
				logrus.Warnf("task %s is still running, skipping", job.Name())
			}
			return
		}
		defer t.release(job.Name())

		job.Run()
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	return nil
}

func (t *TaskExecutor) acquire(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running.Contains(name) {
		return false
	}
	t.running.Add(name)
	return true
}

func (t *TaskExecutor) release(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running.Remove(name)
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
}
