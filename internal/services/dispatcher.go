package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akbaraffaruk/cv-analysis/internal/repositories"
)

// Task is one unit of dispatch: a single stage of a single evaluation job.
// Attempt counts deliveries of this stage, starting at 1.
type Task struct {
	EvaluationID uuid.UUID
	Stage        Stage
	Attempt      int
}

// Dispatcher delivers stage tasks to a worker pool with at-least-once
// semantics. A failed task is redelivered up to maxAttempts times; after
// that the handler's Rescue hook runs. On success the dispatcher enqueues
// the stage's successor, so within one job a later stage never starts before
// the earlier one has durably persisted its output.
type Dispatcher interface {
	Start(ctx context.Context)
	Stop()
	Dispatch(stage Stage, evaluationID uuid.UUID)
}

type dispatcher struct {
	evalRepo     repositories.EvaluationRepository
	handler      StageHandler
	tasks        chan Task
	concurrency  int
	maxAttempts  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

func NewDispatcher(
	evalRepo repositories.EvaluationRepository,
	handler StageHandler,
	concurrency int,
	maxAttempts int,
	pollInterval time.Duration,
) Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &dispatcher{
		evalRepo:     evalRepo,
		handler:      handler,
		tasks:        make(chan Task, 100),
		concurrency:  concurrency,
		maxAttempts:  maxAttempts,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start implements Dispatcher.
func (d *dispatcher) Start(ctx context.Context) {
	log.Printf("🚀 Starting dispatcher with %d workers", d.concurrency)

	for i := 0; i < d.concurrency; i++ {
		d.wg.Add(1)
		go d.processTasks(ctx, i+1)
	}

	if d.pollInterval > 0 {
		d.wg.Add(1)
		go d.pollPendingJobs()
	}

	log.Println("✅ Dispatcher started successfully")
}

// Stop implements Dispatcher.
func (d *dispatcher) Stop() {
	log.Println("🛑 Stopping dispatcher...")
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()
	log.Println("✅ Dispatcher stopped")
}

// Dispatch implements Dispatcher.
func (d *dispatcher) Dispatch(stage Stage, evaluationID uuid.UUID) {
	d.enqueue(Task{EvaluationID: evaluationID, Stage: stage, Attempt: 1})
}

func (d *dispatcher) enqueue(task Task) {
	select {
	case d.tasks <- task:
		log.Printf("📥 Task enqueued: job %s stage %s (attempt %d)", task.EvaluationID, task.Stage, task.Attempt)
	case <-d.stopChan:
		log.Printf("⚠️ Dispatcher stopped, dropping task for job %s stage %s", task.EvaluationID, task.Stage)
	}
}

func (d *dispatcher) processTasks(ctx context.Context, workerID int) {
	defer d.wg.Done()
	log.Printf("👷 Worker #%d started", workerID)

	for {
		select {
		case <-d.stopChan:
			log.Printf("👷 Worker #%d stopped", workerID)
			return
		case task := <-d.tasks:
			d.runTask(ctx, workerID, task)
		}
	}
}

func (d *dispatcher) runTask(ctx context.Context, workerID int, task Task) {
	log.Printf("👷 Worker #%d processing job %s stage %s (attempt %d/%d)",
		workerID, task.EvaluationID, task.Stage, task.Attempt, d.maxAttempts)

	err := d.handler.HandleStage(ctx, task.Stage, task.EvaluationID)
	if err == nil {
		if next, ok := task.Stage.Next(); ok {
			d.enqueue(Task{EvaluationID: task.EvaluationID, Stage: next, Attempt: 1})
		}
		return
	}

	log.Printf("❌ Worker #%d: job %s stage %s failed: %v", workerID, task.EvaluationID, task.Stage, err)

	if task.Attempt < d.maxAttempts {
		d.enqueue(Task{EvaluationID: task.EvaluationID, Stage: task.Stage, Attempt: task.Attempt + 1})
		return
	}

	d.handler.Rescue(task.EvaluationID, task.Stage)
}

// pollPendingJobs re-dispatches jobs still queued in the database. Covers
// jobs accepted before a restart; a freshly created job may transiently be
// picked up here and by its own dispatch, stage handlers tolerate that.
func (d *dispatcher) pollPendingJobs() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	log.Println("🔄 Starting pending jobs poller")

	for {
		select {
		case <-d.stopChan:
			log.Println("🔄 Pending jobs poller stopped")
			return
		case <-ticker.C:
			pendingJobs, err := d.evalRepo.FindPendingJobs(10)
			if err != nil {
				log.Printf("⚠️ Failed to fetch pending jobs: %v", err)
				continue
			}

			if len(pendingJobs) > 0 {
				log.Printf("📋 Found %d pending jobs", len(pendingJobs))
			}

			for _, job := range pendingJobs {
				d.Dispatch(StageCVEvaluation, job.ID)
			}
		}
	}
}
