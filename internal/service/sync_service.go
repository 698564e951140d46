package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"todonotes/internal/domain"
	"todonotes/internal/feed"
)

// SyncResult summarizes one completed merge batch.
type SyncResult struct {
	Inserted int    `json:"inserted"`
	Message  string `json:"message"`
}

// SyncService imports non-duplicate tasks from the remote feed into
// the store. One batch is one blocking call; there is no retry and no
// rollback of records inserted before a failure.
type SyncService interface {
	SyncTasks(ctx context.Context) (*SyncResult, error)
}

type syncService struct {
	tasks TaskService
	feed  feed.Client
}

// NewSyncService wires the sync engine to the task service and the
// remote feed client.
func NewSyncService(tasks TaskService, feedClient feed.Client) SyncService {
	return &syncService{tasks: tasks, feed: feedClient}
}

// SyncTasks fetches the remote snapshot and inserts every record whose
// title is not yet stored. Records are processed in feed order, so a
// title inserted earlier in the batch deduplicates later repeats.
// Existing tasks are never updated by a matching remote record.
func (s *syncService) SyncTasks(ctx context.Context) (*SyncResult, error) {
	records, err := s.feed.Fetch(ctx)
	if err != nil {
		return nil, &domain.SyncError{Message: "fetching remote feed", Cause: err}
	}

	inserted := 0
	for _, record := range records {
		// The store holds trimmed titles, so the dedup check must use
		// the same key as the insert.
		title := strings.TrimSpace(record.Title)
		if title == "" {
			// A blank remote title skips that record, not the batch.
			log.Printf("Skipping remote record with blank title")
			continue
		}

		exists, err := s.tasks.TitleExists(ctx, title)
		if err != nil {
			return nil, &domain.SyncError{Message: "checking for duplicate title", Cause: err}
		}
		if exists {
			continue
		}

		if _, err := s.tasks.CreateImportedTask(ctx, title, record.Completed); err != nil {
			return nil, &domain.SyncError{Message: "inserting imported task", Cause: err}
		}
		inserted++
	}

	return &SyncResult{
		Inserted: inserted,
		Message:  fmt.Sprintf("added %d new tasks", inserted),
	}, nil
}
