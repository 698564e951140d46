package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"todonotes/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTasks is a TaskService whose list can be swapped underneath the
// orchestrator, to observe when a reload actually happens.
type stubTasks struct {
	mu        sync.Mutex
	tasks     []service.TaskResponse
	nextID    uint
	listCalls int
}

func newStubTasks(tasks ...service.TaskResponse) *stubTasks {
	return &stubTasks{tasks: tasks, nextID: uint(len(tasks) + 1)}
}

func (s *stubTasks) setTasks(tasks []service.TaskResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
}

func (s *stubTasks) Initialize(ctx context.Context) error { return nil }

func (s *stubTasks) ListTasks(ctx context.Context) ([]service.TaskResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return append([]service.TaskResponse(nil), s.tasks...), nil
}

func (s *stubTasks) GetTaskByID(ctx context.Context, id uint) (*service.TaskResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			task := s.tasks[i]
			return &task, nil
		}
	}
	return nil, nil
}

func (s *stubTasks) CreateTask(ctx context.Context, req service.CreateTaskRequest) (*service.TaskResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := service.TaskResponse{ID: s.nextID, Title: req.Title}
	s.nextID++
	s.tasks = append([]service.TaskResponse{task}, s.tasks...)
	return &task, nil
}

func (s *stubTasks) CreateImportedTask(ctx context.Context, title string, done bool) (*service.TaskResponse, error) {
	return s.CreateTask(ctx, service.CreateTaskRequest{Title: title})
}

func (s *stubTasks) TitleExists(ctx context.Context, title string) (bool, error) {
	return false, nil
}

func (s *stubTasks) UpdateTask(ctx context.Context, id uint, req service.UpdateTaskRequest) (*service.TaskResponse, error) {
	return &service.TaskResponse{ID: id}, nil
}

func (s *stubTasks) SetTaskDone(ctx context.Context, id uint, done bool) (*service.TaskResponse, error) {
	return &service.TaskResponse{ID: id, Done: done}, nil
}

func (s *stubTasks) ToggleTaskDone(ctx context.Context, id uint) (*service.TaskResponse, error) {
	return &service.TaskResponse{ID: id, Done: true}, nil
}

func (s *stubTasks) SetTaskTitle(ctx context.Context, id uint, title string) (*service.TaskResponse, error) {
	return &service.TaskResponse{ID: id, Title: title}, nil
}

func (s *stubTasks) DeleteTask(ctx context.Context, id uint) error { return nil }

// blockingSync parks SyncTasks until release is closed.
type blockingSync struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSync) SyncTasks(ctx context.Context) (*service.SyncResult, error) {
	close(b.started)
	<-b.release
	return &service.SyncResult{Inserted: 0, Message: "added 0 new tasks"}, nil
}

func sampleTasks() []service.TaskResponse {
	return []service.TaskResponse{
		{ID: 2, Title: "Write report", Done: false, CreatedAt: 2000},
		{ID: 1, Title: "Buy milk", Done: false, CreatedAt: 1000},
	}
}

func TestSearchBlankReturnsWholeSnapshot(t *testing.T) {
	stub := newStubTasks(sampleTasks()...)
	a := New(stub, nil)

	_, err := a.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, a.Search(""), 2)
	assert.Len(t, a.Search("   "), 2)
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	stub := newStubTasks(sampleTasks()...)
	a := New(stub, nil)

	_, err := a.Load(context.Background())
	require.NoError(t, err)

	matches := a.Search("MILK")
	require.Len(t, matches, 1)
	assert.EqualValues(t, 1, matches[0].ID)

	assert.Empty(t, a.Search("groceries"))
}

func TestSearchMatchesRawTextIncludingSpaces(t *testing.T) {
	stub := newStubTasks(
		service.TaskResponse{ID: 3, Title: "Milkshake run", CreatedAt: 3000},
		service.TaskResponse{ID: 2, Title: "Buy milk", CreatedAt: 2000},
	)
	a := New(stub, nil)

	_, err := a.Load(context.Background())
	require.NoError(t, err)

	// " milk" carries its leading space into the match: "Buy milk"
	// contains it, "Milkshake run" does not.
	matches := a.Search(" milk")
	require.Len(t, matches, 1)
	assert.EqualValues(t, 2, matches[0].ID)
}

func TestSearchDoesNotRequeryTheStore(t *testing.T) {
	stub := newStubTasks(sampleTasks()...)
	a := New(stub, nil)

	_, err := a.Load(context.Background())
	require.NoError(t, err)

	// Mutate the store behind the orchestrator's back. Search still
	// answers from the loaded snapshot.
	stub.setTasks(nil)
	assert.Len(t, a.Search(""), 2)
	assert.Len(t, a.Search("milk"), 1)

	_, err = a.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, a.Search(""))
}

func TestMutationsReloadTheFullList(t *testing.T) {
	stub := newStubTasks(sampleTasks()...)
	a := New(stub, nil)

	tasks, err := a.Add(context.Background(), service.CreateTaskRequest{Title: "New task"})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "New task", tasks[0].Title)

	// The snapshot now reflects the reload.
	assert.Len(t, a.Search(""), 3)
}

func TestRefreshHoldsMinimumDelayAndAlwaysReloads(t *testing.T) {
	stub := newStubTasks(sampleTasks()...)
	a := New(stub, nil)
	a.refreshDelay = 50 * time.Millisecond

	before := stub.listCalls
	start := time.Now()
	tasks, err := a.Refresh(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Len(t, tasks, 2)
	assert.Equal(t, before+1, stub.listCalls)
}

func TestRefreshHonorsContextCancellation(t *testing.T) {
	stub := newStubTasks()
	a := New(stub, nil)
	a.refreshDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOnlyOneSyncInFlight(t *testing.T) {
	stub := newStubTasks()
	blocker := &blockingSync{started: make(chan struct{}), release: make(chan struct{})}
	a := New(stub, blocker)

	errCh := make(chan error, 1)
	go func() {
		_, _, err := a.Sync(context.Background())
		errCh <- err
	}()

	<-blocker.started

	// Second trigger while the first batch is outstanding.
	_, _, err := a.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInFlight)

	close(blocker.release)
	require.NoError(t, <-errCh)

	// Once the batch settles, syncing is possible again.
	blocker2 := &blockingSync{started: make(chan struct{}), release: make(chan struct{})}
	a.syncer = blocker2
	close(blocker2.release)
	_, _, err = a.Sync(context.Background())
	require.NoError(t, err)
}
