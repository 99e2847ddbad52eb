package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jungyuya/new-blog-sub000/internal/config"
	"github.com/jungyuya/new-blog-sub000/internal/index"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// SaveFailed parks a change record that could not be applied to the index.
// Satisfies index.FailedJobSaver.
func (s *Service) SaveFailed(ctx context.Context, record index.ChangeRecord, reason string) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal change record: %w", err)
	}
	return s.repo.Save(ctx, &Job{
		PostID:    changePostID(record),
		EventName: record.EventName,
		Payload:   payload,
		Error:     reason,
	})
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

// Retry republishes the parked record on the change-feed topic so the
// consumer reprocesses it, then removes the job. The replayed batch gets a
// fresh correlation ID.
func (s *Service) Retry(ctx context.Context, id string) error {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	var record index.ChangeRecord
	if err := json.Unmarshal(j.Payload, &record); err != nil {
		return fmt.Errorf("unmarshal parked record: %w", err)
	}

	body, err := json.Marshal(index.ChangeBatch{
		Records:       []index.ChangeRecord{record},
		CorrelationID: uuid.New().String(),
	})
	if err != nil {
		return err
	}

	if err := s.pub.Publish(config.TopicBlogChangeFeed, body); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func changePostID(r index.ChangeRecord) string {
	if r.NewImage != nil {
		return r.NewImage.ID
	}
	if r.OldImage != nil {
		return r.OldImage.ID
	}
	return ""
}
