// Package inapp stores in-app notifications and serves a user's inbox.
package inapp

import (
	"context"
	"errors"

	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the persistence used by Service.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
	ActiveAdmins(ctx context.Context) ([]uuid.UUID, error)
}

var _ Store = (*Repository)(nil)

type Service struct {
	repo Store
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log}
}

// SendParams describes one notification. Type is a machine-readable key such
// as "report_submitted".
type SendParams struct {
	UserID       uuid.UUID
	Type         string
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType string
}

// Send persists the notification for a single user.
func (s *Service) Send(ctx context.Context, p SendParams) error {
	if s == nil || s.repo == nil {
		return apperr.Internal("in-app notification service not configured")
	}

	var resourceType *string
	if p.ResourceType != "" {
		resourceType = &p.ResourceType
	}

	_, err := s.repo.Create(ctx, CreateParams{
		UserID:       p.UserID,
		Type:         p.Type,
		Title:        p.Title,
		Content:      p.Content,
		ResourceID:   p.ResourceID,
		ResourceType: resourceType,
	})
	if err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "userId", p.UserID, "type", p.Type)
		return err
	}
	return nil
}

// SendToAdmins fans p out to every active administrator. UserID is ignored.
// Every admin is attempted; the failures are joined.
func (s *Service) SendToAdmins(ctx context.Context, p SendParams) error {
	admins, err := s.repo.ActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		s.log.Warn("no active admins to notify", "type", p.Type)
		return nil
	}

	var errs []error
	for _, id := range admins {
		p.UserID = id
		if err := s.Send(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Paging clamps a requested page to 1.. and its size to 1..maxPageSize,
// defaulting the size to defaultPageSize.
func Paging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	page, pageSize = Paging(page, pageSize)
	offset := (page - 1) * pageSize
	return s.repo.List(ctx, userID, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
