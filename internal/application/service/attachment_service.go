package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/application/workflow"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// AttachmentService stores request attachments in blob storage
type AttachmentService interface {
	// Upload stores a blob and records it on the request
	Upload(ctx context.Context, ref entity.RequestRef, actor, name, contentType string, content []byte) (*entity.Attachment, error)

	// Download returns a blob to the owner or anyone named on the request
	Download(ctx context.Context, ref entity.RequestRef, actor, name string) (*entity.Attachment, []byte, error)
}

type attachmentServiceImpl struct {
	coordinator workflow.Coordinator
	storage     port.FileStorage
	logger      Logger
	maxSize     int64
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(coordinator workflow.Coordinator, storage port.FileStorage, logger Logger, maxSize int64) AttachmentService {
	return &attachmentServiceImpl{
		coordinator: coordinator,
		storage:     storage,
		logger:      logger,
		maxSize:     maxSize,
	}
}

// Upload saves the blob first and removes it again if the request refuses it
func (s *attachmentServiceImpl) Upload(ctx context.Context, ref entity.RequestRef, actor, name, contentType string, content []byte) (*entity.Attachment, error) {
	name, err := cleanFileName(name)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty attachment", approval.ErrInvalidInput)
	}
	if s.maxSize > 0 && int64(len(content)) > s.maxSize {
		return nil, fmt.Errorf("%w: attachment exceeds %d bytes", approval.ErrInvalidInput, s.maxSize)
	}
	if actor == "" || actor != ref.Owner {
		return nil, fmt.Errorf("%w: only the owner can attach files to %s", approval.ErrNotAuthorized, ref)
	}

	att := entity.Attachment{
		Key:         attachmentKey(ref, name),
		Name:        name,
		Size:        int64(len(content)),
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}

	if err := s.storage.Save(ctx, att.Key, content, contentType); err != nil {
		s.logger.Error("Failed to store attachment", "key", att.Key, "error", err)
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	if err := s.coordinator.AddAttachment(ctx, ref, actor, att); err != nil {
		if delErr := s.storage.Delete(ctx, att.Key); delErr != nil {
			s.logger.Error("Failed to remove orphaned attachment", "key", att.Key, "error", delErr)
		}
		return nil, err
	}

	s.logger.Info("Attachment stored", "request", ref.String(), "key", att.Key, "size", att.Size)
	return &att, nil
}

// Download reads an attachment recorded on the request
func (s *attachmentServiceImpl) Download(ctx context.Context, ref entity.RequestRef, actor, name string) (*entity.Attachment, []byte, error) {
	req, err := s.coordinator.Get(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if !CanView(req, actor) {
		return nil, nil, fmt.Errorf("%w: %s cannot read attachments of %s", approval.ErrNotAuthorized, actor, ref)
	}

	for _, att := range req.Attachments {
		if att.Name != name {
			continue
		}
		content, err := s.storage.Read(ctx, att.Key)
		if errors.Is(err, port.ErrBlobNotFound) {
			return nil, nil, fmt.Errorf("%w: attachment %q has no content", approval.ErrNotFound, name)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read attachment: %w", err)
		}
		found := att
		return &found, content, nil
	}
	return nil, nil, fmt.Errorf("%w: attachment %q", approval.ErrNotFound, name)
}

// CanView reports whether the actor owns the request or is named on it
func CanView(req *entity.Request, actor string) bool {
	if actor == "" {
		return false
	}
	if actor == req.Owner || req.Approvers.TierOf(actor) != approval.TierNone {
		return true
	}
	for _, id := range req.Approvers.Shared {
		if id == actor {
			return true
		}
	}
	return false
}

func attachmentKey(ref entity.RequestRef, name string) string {
	return fmt.Sprintf("%s/%s/%s", ref.Owner, ref.ID, name)
}

func cleanFileName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", fmt.Errorf("%w: invalid file name %q", approval.ErrInvalidInput, name)
	}
	return base, nil
}
