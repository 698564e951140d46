// Package app sequences store and sync calls for the UI layer. It
// owns the currently loaded snapshot of the task list and republishes
// a fresh full reload after every mutation, keeping the id-descending
// ordering invariant without the UI knowing storage details.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"todonotes/internal/service"
)

// minRefreshDelay is the minimum user-visible duration of a
// pull-to-refresh before it resolves. Cosmetic, not a correctness
// mechanism.
const minRefreshDelay = 300 * time.Millisecond

// ErrSyncInFlight reports a sync trigger while a previous batch is
// still outstanding. Exactly one batch may be in flight at a time.
var ErrSyncInFlight = errors.New("a sync is already in progress")

// App mediates between UI events and the task/sync services.
type App struct {
	tasks  service.TaskService
	syncer service.SyncService

	mu       sync.RWMutex
	snapshot []service.TaskResponse

	syncMu  sync.Mutex
	syncing bool

	refreshDelay time.Duration
}

// New builds the orchestrator. Services are injected; the snapshot
// starts empty until the first Load.
func New(tasks service.TaskService, syncSvc service.SyncService) *App {
	return &App{
		tasks:        tasks,
		syncer:       syncSvc,
		refreshDelay: minRefreshDelay,
	}
}

// reload requeries the store and replaces the snapshot. Every caller
// gets the full updated set, never a partial patch of stale state.
func (a *App) reload(ctx context.Context) ([]service.TaskResponse, error) {
	tasks, err := a.tasks.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.snapshot = tasks
	a.mu.Unlock()
	return tasks, nil
}

// Load reloads and returns the full task list.
func (a *App) Load(ctx context.Context) ([]service.TaskResponse, error) {
	return a.reload(ctx)
}

// Get looks up a single task by id. The snapshot is not touched.
func (a *App) Get(ctx context.Context, id uint) (*service.TaskResponse, error) {
	return a.tasks.GetTaskByID(ctx, id)
}

// Add creates a task and returns the updated list.
func (a *App) Add(ctx context.Context, req service.CreateTaskRequest) ([]service.TaskResponse, error) {
	if _, err := a.tasks.CreateTask(ctx, req); err != nil {
		return nil, err
	}
	return a.reload(ctx)
}

// Toggle flips the done flag of one task and returns the updated list.
func (a *App) Toggle(ctx context.Context, id uint) ([]service.TaskResponse, error) {
	if _, err := a.tasks.ToggleTaskDone(ctx, id); err != nil {
		return nil, err
	}
	return a.reload(ctx)
}

// SetDone sets the done flag explicitly and returns the updated list.
func (a *App) SetDone(ctx context.Context, id uint, done bool) ([]service.TaskResponse, error) {
	if _, err := a.tasks.SetTaskDone(ctx, id, done); err != nil {
		return nil, err
	}
	return a.reload(ctx)
}

// Edit replaces the mutable fields of one task and returns the
// updated list.
func (a *App) Edit(ctx context.Context, id uint, req service.UpdateTaskRequest) ([]service.TaskResponse, error) {
	if _, err := a.tasks.UpdateTask(ctx, id, req); err != nil {
		return nil, err
	}
	return a.reload(ctx)
}

// Delete removes a task (idempotent) and returns the updated list.
func (a *App) Delete(ctx context.Context, id uint) ([]service.TaskResponse, error) {
	if err := a.tasks.DeleteTask(ctx, id); err != nil {
		return nil, err
	}
	return a.reload(ctx)
}

// Search filters the currently loaded snapshot. Blank text returns
// the whole snapshot; otherwise titles are matched case-insensitively
// as substrings. The store is not requeried, so the result reflects
// whatever was last loaded.
func (a *App) Search(text string) []service.TaskResponse {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if strings.TrimSpace(text) == "" {
		return append([]service.TaskResponse(nil), a.snapshot...)
	}

	// Trimming decides blankness only; the match uses the raw text,
	// so surrounding spaces in the query are significant.
	needle := strings.ToLower(text)
	matches := make([]service.TaskResponse, 0, len(a.snapshot))
	for _, task := range a.snapshot {
		if strings.Contains(strings.ToLower(task.Title), needle) {
			matches = append(matches, task)
		}
	}
	return matches
}

// Sync runs one merge batch against the remote feed and returns the
// summary plus the updated list. A second trigger while a batch is
// outstanding fails with ErrSyncInFlight; local mutations are not
// blocked by an in-flight sync.
func (a *App) Sync(ctx context.Context) (*service.SyncResult, []service.TaskResponse, error) {
	a.syncMu.Lock()
	if a.syncing {
		a.syncMu.Unlock()
		return nil, nil, ErrSyncInFlight
	}
	a.syncing = true
	a.syncMu.Unlock()

	defer func() {
		a.syncMu.Lock()
		a.syncing = false
		a.syncMu.Unlock()
	}()

	result, err := a.syncer.SyncTasks(ctx)
	if err != nil {
		// Partial inserts from the failed batch stay in the store and
		// show up on the next reload; the snapshot is left as-is.
		return nil, nil, err
	}

	tasks, err := a.reload(ctx)
	if err != nil {
		return nil, nil, err
	}
	return result, tasks, nil
}

// Refresh waits out the minimum indicator duration, then always
// reloads, even when nothing changed.
func (a *App) Refresh(ctx context.Context) ([]service.TaskResponse, error) {
	timer := time.NewTimer(a.refreshDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return a.reload(ctx)
}
