package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"github.com/jungyuya/new-blog-sub000/internal/middleware"
)

// FailedJobSaver persists change records that exhausted processing so they
// can be inspected and replayed later.
type FailedJobSaver interface {
	SaveFailed(ctx context.Context, record ChangeRecord, reason string) error
}

// ChangeConsumer applies post change-feed events to the vector index.
//
// Delivery is at-least-once: a processing error is returned to NSQ so the
// whole batch is redelivered. Chunk upserts are id-keyed and removals
// idempotent, so replays converge to the same index state.
type ChangeConsumer struct {
	indexer *Indexer
	jobs    FailedJobSaver
}

func NewChangeConsumer(indexer *Indexer, jobs FailedJobSaver) *ChangeConsumer {
	return &ChangeConsumer{indexer: indexer, jobs: jobs}
}

func (c *ChangeConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var batch ChangeBatch
	if err := json.Unmarshal(m.Body, &batch); err != nil {
		// Malformed payloads never become valid; drop instead of retrying.
		slog.Error("invalid change-feed message, dropping", "error", err)
		return nil
	}

	correlationID := batch.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	return c.processBatch(ctx, batch.Records)
}

// processBatch applies every record; records touch disjoint posts, so they
// run concurrently. All records are attempted even when one fails, and the
// collected failure is returned so the caller's redelivery retries the batch.
func (c *ChangeConsumer) processBatch(ctx context.Context, records []ChangeRecord) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for i := range records {
		record := records[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.processRecord(ctx, record); err != nil {
				slog.ErrorContext(ctx, "change record failed",
					"event", record.EventName, "post_id", recordPostID(record), "error", err)
				c.saveFailed(ctx, record, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d change record(s) failed: %w", len(errs), len(records), errors.Join(errs...))
	}
	return nil
}

func (c *ChangeConsumer) processRecord(ctx context.Context, record ChangeRecord) error {
	switch record.EventName {
	case EventInsert, EventModify:
		if record.NewImage == nil || record.NewImage.ID == "" {
			slog.WarnContext(ctx, "change record missing new image, skipping", "event", record.EventName)
			return nil
		}
		return c.indexer.IndexPost(ctx, record.NewImage.toPost())

	case EventRemove:
		if record.OldImage == nil || record.OldImage.ID == "" {
			slog.WarnContext(ctx, "remove record missing old image, skipping")
			return nil
		}
		return c.indexer.RemovePost(ctx, record.OldImage.ID)

	default:
		slog.WarnContext(ctx, "unknown change event, skipping", "event", record.EventName)
		return nil
	}
}

func (c *ChangeConsumer) saveFailed(ctx context.Context, record ChangeRecord, cause error) {
	if c.jobs == nil {
		return
	}
	if err := c.jobs.SaveFailed(ctx, record, cause.Error()); err != nil {
		slog.ErrorContext(ctx, "failed to persist failed change record", "error", err)
	}
}

func recordPostID(r ChangeRecord) string {
	if r.NewImage != nil {
		return r.NewImage.ID
	}
	if r.OldImage != nil {
		return r.OldImage.ID
	}
	return ""
}
