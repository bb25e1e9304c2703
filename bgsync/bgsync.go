// Package bgsync holds the background sync tags the worker registers and
// runs their tasks when the hosting runtime triggers them.
//
// This is a documented extension point rather than a functioning data
// synchronization pipeline: the task shipped for the app's tag performs no
// work and always succeeds.
package bgsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/neurospeech/offline-cache/metrics"
)

// TaskFunc runs the work behind one sync tag.
type TaskFunc func(ctx context.Context) error

type Registry struct {
	mutex sync.RWMutex
	tasks map[string]TaskFunc
	log   zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tasks: make(map[string]TaskFunc),
		log:   logger,
	}
}

// Register associates a task with a sync tag, replacing any previous task.
func (r *Registry) Register(tag string, task TaskFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.tasks[tag] = task
	r.log.Debug().Str("tag", tag).Msg("Registered sync tag")
}

// Trigger runs the task registered for the given tag.
// Triggering an unknown tag is an error.
func (r *Registry) Trigger(ctx context.Context, tag string) error {
	r.mutex.RLock()
	task, ok := r.tasks[tag]
	r.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("unknown sync tag %q", tag)
	}
	metrics.RecordSyncTrigger(tag)
	r.log.Debug().Str("tag", tag).Msg("Sync triggered")
	if err := task(ctx); err != nil {
		r.log.Error().Err(err).Str("tag", tag).Msg("Sync task failed")
		return err
	}
	r.log.Debug().Str("tag", tag).Msg("Sync task completed")
	return nil
}

// NoopTask is the placeholder task for tags that have no real
// synchronization behind them yet. It performs no work and always succeeds.
func NoopTask(ctx context.Context) error {
	return nil
}
