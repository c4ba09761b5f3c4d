package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"financas/internal/core"
	"financas/internal/metrics"
	"financas/internal/storage"
)

// AllPeriods lists attachments regardless of period.
const AllPeriods = "todos"

// AttachmentService stores receipts for fixed charges and debts.
type AttachmentService struct {
	store   storage.AttachmentStore
	metrics *metrics.Metrics
}

func NewAttachmentService(store storage.AttachmentStore, m *metrics.Metrics) *AttachmentService {
	return &AttachmentService{store: store, metrics: m}
}

// Upload validates and stores a. Oversized files fail with
// *core.FileTooLargeError before anything is written.
func (s *AttachmentService) Upload(ctx context.Context, a core.Attachment) (core.Attachment, error) {
	a.ID = 0
	a.UploadedAt = a.UploadedAt.UTC()
	a.Description = strings.TrimSpace(a.Description)
	a.Period = strings.TrimSpace(a.Period)

	if err := a.Validate(); err != nil {
		s.metrics.Upload("attachment", "rejected")
		return core.Attachment{}, err
	}
	if len(a.Data) == 0 {
		s.metrics.Upload("attachment", "rejected")
		return core.Attachment{}, &core.ValidationError{Field: "arquivo_dados", Err: core.ErrEmptyFile}
	}

	saved, err := s.store.AddAttachment(ctx, a)
	if err != nil {
		s.metrics.Upload("attachment", "error")
		return core.Attachment{}, fmt.Errorf("save attachment: %w", err)
	}
	s.metrics.Upload("attachment", "stored")
	slog.InfoContext(ctx, "Attachment uploaded",
		"attachment_id", saved.ID,
		"owner", saved.Owner,
		"period", saved.Period,
		"bytes", len(saved.Data))
	return saved, nil
}

// List returns attachment metadata for period, newest upload first. An empty
// period or AllPeriods lists everything.
func (s *AttachmentService) List(ctx context.Context, period string) ([]core.Attachment, error) {
	period = strings.TrimSpace(period)
	if period == AllPeriods {
		period = ""
	}
	return s.store.ListAttachments(ctx, period)
}

// Fetch returns the attachment with its bytes.
func (s *AttachmentService) Fetch(ctx context.Context, id int64) (core.Attachment, error) {
	return s.store.GetAttachment(ctx, id)
}
