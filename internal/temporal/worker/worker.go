// Package worker wires Temporal clients, workers, and schedules for the
// pipeline's task queues.
package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/logger"
)

// Registrar registers a worker's workflows and activities.
type Registrar func(w worker.Worker)

// WorkflowName returns registration options binding a workflow function to
// its stable type name.
func WorkflowName(name string) workflow.RegisterOptions {
	return workflow.RegisterOptions{Name: name}
}

// Worker hosts one task-queue poller.
type Worker struct {
	client    client.Client
	worker    worker.Worker
	taskQueue string
	log       *logger.Logger
}

// Dial connects to the Temporal server, retrying while it comes up.
func Dial(cfg config.TemporalConfig, log *logger.Logger) (client.Client, error) {
	opts := client.Options{
		HostPort:  cfg.URL,
		Namespace: cfg.Namespace,
		Logger:    newTemporalLogger(log),
	}

	const maxRetries = 20
	const retryInterval = 10 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		c, err := client.Dial(opts)
		if err == nil {
			log.Info("connected to Temporal server", "attempt", attempt, "host", cfg.URL)
			return c, nil
		}
		lastErr = err
		log.WithError(err).Warn("Temporal connection failed, retrying",
			"attempt", attempt, "max_retries", maxRetries)
		time.Sleep(retryInterval)
	}
	return nil, faults.Wrap(faults.TransientNetwork, lastErr, "connecting to Temporal at %q", cfg.URL)
}

// New creates a worker on the given task queue and registers its workflows
// and activities.
func New(c client.Client, taskQueue string, log *logger.Logger, register Registrar) *Worker {
	w := worker.New(c, taskQueue, worker.Options{
		MaxConcurrentWorkflowTaskExecutionSize: 100,
		MaxConcurrentActivityExecutionSize:     50,
	})
	register(w)

	log.Info("Temporal worker created", "task_queue", taskQueue)
	return &Worker{client: c, worker: w, taskQueue: taskQueue, log: log.WithTaskQueue(taskQueue)}
}

// Run polls the task queue until the interrupt channel fires, then drains
// in-flight activities and returns.
func (w *Worker) Run(interrupt <-chan interface{}) error {
	w.log.Info("running Temporal worker")
	return w.worker.Run(interrupt)
}

// Stop stops the worker without closing the shared client.
func (w *Worker) Stop() {
	w.log.Info("stopping Temporal worker")
	w.worker.Stop()
}

// InterruptCh returns a channel that fires on SIGINT/SIGTERM.
func InterruptCh() <-chan interface{} {
	return worker.InterruptCh()
}

// EnsureSchedule creates an interval schedule for a workflow. Creating a
// schedule whose id already exists is a no-op.
func EnsureSchedule(ctx context.Context, c client.Client, scheduleID, workflowType, workflowID, taskQueue string, interval time.Duration, args []any, log *logger.Logger) error {
	_, err := c.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: scheduleID,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: interval}},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        workflowID,
			Workflow:  workflowType,
			TaskQueue: taskQueue,
			Args:      args,
		},
	})
	if err != nil {
		var alreadyExists *serviceerror.AlreadyExists
		if errors.As(err, &alreadyExists) || strings.Contains(err.Error(), "already exists") ||
			errors.Is(err, client.ErrScheduleAlreadyRunning) {
			log.Info("schedule already running", "schedule_id", scheduleID)
			return nil
		}
		return faults.Wrap(faults.TransientNetwork, err, "creating schedule %q", scheduleID)
	}
	log.Info("schedule created", "schedule_id", scheduleID, "interval", interval.String())
	return nil
}

// temporalLogger adapts our logger to Temporal's logger interface.
type temporalLogger struct {
	log *logger.Logger
}

func newTemporalLogger(log *logger.Logger) *temporalLogger {
	return &temporalLogger{log: log.WithComponent("temporal-sdk")}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.log.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.log.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.log.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.log.Error(msg, keyvals...)
}
