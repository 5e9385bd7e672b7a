package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/domain/event"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

// NotificationService resolves notification intents to admins and delivers
// them in-app and, when configured, over Lark IM.
type NotificationService interface {
	port.NotificationSink

	// Deliver resolves every intent and sends it. Delivery continues past
	// failures; the returned error joins them.
	Deliver(ctx context.Context, intents []domainwf.Intent) error

	// HandleEvent delivers the intents carried by a domain event
	HandleEvent(ctx context.Context, evt *event.Event) error

	ListForAdmin(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, adminID, id int64) error
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	directory        port.AdminDirectory
	messageSender    port.MessageSender
	logger           Logger
}

// NewNotificationService creates a new NotificationService. messageSender may
// be nil, in which case notifications are stored in-app only.
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	directory port.AdminDirectory,
	messageSender port.MessageSender,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		directory:        directory,
		messageSender:    messageSender,
		logger:           logger,
	}
}

// HandleEvent delivers the intents carried by evt
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	intents := evt.Intents()
	if len(intents) == 0 {
		return nil
	}
	return s.Deliver(ctx, intents)
}

// Deliver resolves recipients and sends each message once per admin
func (s *notificationServiceImpl) Deliver(ctx context.Context, intents []domainwf.Intent) error {
	var errs []error
	sent := 0

	for _, intent := range intents {
		admins, err := s.resolve(ctx, intent.Recipient)
		if err != nil {
			s.logger.Error("Failed to resolve recipients", "error", err, "form_id", intent.Message.FormID, "role", intent.Recipient.Role)
			errs = append(errs, err)
			continue
		}

		for _, admin := range admins {
			if err := s.Send(ctx, admin, intent.Message); err != nil {
				errs = append(errs, err)
				continue
			}
			sent++
		}
	}

	s.logger.Info("Notifications delivered", "intents", len(intents), "sent", sent, "failed", len(errs))
	return errors.Join(errs...)
}

// Send stores msg for admin and pushes it over Lark when possible. A failed
// push does not fail the send once the in-app copy is stored.
func (s *notificationServiceImpl) Send(ctx context.Context, admin *entity.Admin, msg entity.Message) error {
	n := &entity.Notification{
		AdminID:   admin.ID,
		Title:     msg.Title,
		Message:   msg.Message,
		Category:  msg.Category,
		CreatedAt: time.Now(),
	}
	if msg.FormID != 0 {
		formID := msg.FormID
		n.FormID = &formID
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", "error", err, "admin_id", admin.ID)
		return fmt.Errorf("store notification for admin %d: %w", admin.ID, err)
	}

	if s.messageSender != nil && admin.LarkOpenID != "" {
		content := fmt.Sprintf("%s\n\n%s", msg.Title, msg.Message)
		if err := s.messageSender.SendMessage(ctx, admin.LarkOpenID, content); err != nil {
			s.logger.Error("Failed to push notification", "error", err, "admin_id", admin.ID, "notification_id", n.ID)
		}
	}

	return nil
}

// ListForAdmin returns the newest notifications of an admin
func (s *notificationServiceImpl) ListForAdmin(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := s.notificationRepo.ListByAdminID(ctx, adminID, unreadOnly, limit)
	if err != nil {
		s.logger.Error("Failed to list notifications", "error", err, "admin_id", adminID)
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// MarkRead marks one of the admin's notifications as read
func (s *notificationServiceImpl) MarkRead(ctx context.Context, adminID, id int64) error {
	ok, err := s.notificationRepo.MarkRead(ctx, id, adminID)
	if err != nil {
		s.logger.Error("Failed to mark notification read", "error", err, "notification_id", id)
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return domainwf.NotFound("Notification %d was not found", id)
	}
	return nil
}

func (s *notificationServiceImpl) resolve(ctx context.Context, sel domainwf.RecipientSelector) ([]*entity.Admin, error) {
	if sel.AdminID != nil {
		admin, err := s.directory.GetAdmin(ctx, *sel.AdminID)
		if err != nil {
			return nil, fmt.Errorf("get admin %d: %w", *sel.AdminID, err)
		}
		if admin == nil {
			s.logger.Info("Notification recipient no longer exists", "admin_id", *sel.AdminID)
			return nil, nil
		}
		return []*entity.Admin{admin}, nil
	}

	admins, err := s.directory.ListAdmins(ctx, sel.Role, sel.Region)
	if err != nil {
		return nil, fmt.Errorf("list %s admins: %w", sel.Role, err)
	}
	return admins, nil
}
