// internal/services/event_service.go
package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

// GuardianNotifier tells a guardian that a dependent is waiting on an
// approval. Push delivery is an external concern; the default
// implementation only logs.
type GuardianNotifier interface {
	NotifyPendingEvent(guardianID, minorID, eventID uuid.UUID, eventTitle string)
}

type LogGuardianNotifier struct{}

func (LogGuardianNotifier) NotifyPendingEvent(guardianID, minorID, eventID uuid.UUID, eventTitle string) {
	logrus.WithFields(logrus.Fields{
		"guardian_id": guardianID,
		"minor_id":    minorID,
		"event_id":    eventID,
		"event_title": eventTitle,
	}).Info("Guardian notified of pending event participation")
}

type EventService struct {
	db       *gorm.DB
	notifier GuardianNotifier
}

type CreateEventRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=160"`
	Description string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	VenueName   string   `json:"venue_name,omitempty" validate:"omitempty,max=160"`
	AddressLine string   `json:"address_line,omitempty" validate:"omitempty,max=255"`
	City        string   `json:"city,omitempty" validate:"omitempty,max=80"`
	Country     string   `json:"country,omitempty" validate:"omitempty,max=80"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	StartAt     string   `json:"start_at" validate:"required"`
	EndAt       string   `json:"end_at" validate:"required"`
	Capacity    int      `json:"capacity,omitempty" validate:"omitempty,gte=0"`
}

func NewEventService(db *gorm.DB, notifier GuardianNotifier) *EventService {
	if notifier == nil {
		notifier = LogGuardianNotifier{}
	}
	return &EventService{db: db, notifier: notifier}
}

// CreateEvent registers a new meetup. Only KYC-verified adult-class
// accounts may host.
func (s *EventService) CreateEvent(host *models.User, req *CreateEventRequest) (*models.Event, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid event request", err)
	}

	if !host.IsKYCVerified {
		return nil, apperrors.Forbidden("host must complete KYC verification before creating events")
	}

	switch host.Role {
	case models.UserRoleAdult, models.UserRoleGuardian, models.UserRoleVendor, models.UserRoleAdmin:
	default:
		return nil, apperrors.Forbidden("only verified adult users can create events")
	}

	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return nil, apperrors.Validation("start_at must be a valid RFC3339 timestamp")
	}
	endAt, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		return nil, apperrors.Validation("end_at must be a valid RFC3339 timestamp")
	}
	if !startAt.Before(endAt) {
		return nil, apperrors.Validation("end_at must be after start_at")
	}

	slug, err := s.generateUniqueSlug(req.Title)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		Slug:        slug,
		Title:       req.Title,
		Description: req.Description,
		HostID:      host.ID,
		VenueName:   req.VenueName,
		AddressLine: req.AddressLine,
		City:        req.City,
		Country:     req.Country,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		StartAt:     startAt,
		EndAt:       endAt,
		Capacity:    req.Capacity,
		Status:      models.EventStatusPending,
	}

	if err := s.db.Create(event).Error; err != nil {
		return nil, apperrors.Internal("failed to create event", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"host_id":  host.ID,
	}).Info("Event created")

	return event, nil
}

func (s *EventService) GetValidatedEvents() ([]models.Event, error) {
	var events []models.Event
	err := s.db.Where("status = ?", models.EventStatusValidated).
		Order("start_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, apperrors.Internal("failed to fetch events", err)
	}
	return events, nil
}

// ConfirmPresence registers the user for a validated event. Adults are
// confirmed right away; minors go through the parental gate and their
// guardian is notified. Re-confirming an already confirmed presence is
// a no-op.
func (s *EventService) ConfirmPresence(eventID uuid.UUID, user *models.User) (*models.EventParticipation, error) {
	var event models.Event
	if err := s.db.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event not found")
		}
		return nil, apperrors.Internal("database error", err)
	}

	if event.Status != models.EventStatusValidated {
		return nil, apperrors.Forbidden("event is not validated yet")
	}

	var existing models.EventParticipation
	err := s.db.First(&existing, "event_id = ? AND user_id = ?", eventID, user.ID).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("database error", err)
	}

	if user.IsMinor() {
		if user.GuardianID == nil {
			return nil, apperrors.Forbidden("minor must be linked to a guardian before confirming presence")
		}

		pending := models.ApprovalStatusPending
		var participation *models.EventParticipation
		if found {
			existing.Status = models.ParticipationStatusPendingParentalApproval
			existing.ParentalStatus = &pending
			if err := s.db.Save(&existing).Error; err != nil {
				return nil, apperrors.Internal("failed to update participation", err)
			}
			participation = &existing
		} else {
			participation = &models.EventParticipation{
				EventID:        eventID,
				UserID:         user.ID,
				Status:         models.ParticipationStatusPendingParentalApproval,
				ParentalStatus: &pending,
			}
			if err := s.db.Create(participation).Error; err != nil {
				return nil, apperrors.Internal("failed to create participation", err)
			}
		}

		s.notifier.NotifyPendingEvent(*user.GuardianID, user.ID, event.ID, event.Title)
		return participation, nil
	}

	if found && existing.Status == models.ParticipationStatusConfirmed {
		return &existing, nil
	}

	if found {
		existing.Status = models.ParticipationStatusConfirmed
		existing.ParentalStatus = nil
		existing.ParentalDecidedByID = nil
		existing.ParentalDecidedAt = nil
		existing.ParentalDecisionNote = ""
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, apperrors.Internal("failed to update participation", err)
		}
		return &existing, nil
	}

	participation := &models.EventParticipation{
		EventID: eventID,
		UserID:  user.ID,
		Status:  models.ParticipationStatusConfirmed,
	}
	if err := s.db.Create(participation).Error; err != nil {
		return nil, apperrors.Internal("failed to create participation", err)
	}
	return participation, nil
}

// GetAggregatedInventory lists every tradable item owned by the
// event's confirmed participants.
func (s *EventService) GetAggregatedInventory(eventID uuid.UUID) ([]models.InventoryItem, error) {
	var event models.Event
	if err := s.db.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event not found")
		}
		return nil, apperrors.Internal("database error", err)
	}

	if event.Status != models.EventStatusValidated {
		return nil, apperrors.Forbidden("event must be validated to aggregate inventory")
	}

	var items []models.InventoryItem
	err := s.db.
		Preload("Owner").
		Preload("CardDefinition").
		Joins("JOIN event_participations ON event_participations.user_id = inventory_items.owner_id").
		Where("event_participations.event_id = ? AND event_participations.status = ?",
			eventID, models.ParticipationStatusConfirmed).
		Where("inventory_items.visibility <> ? AND inventory_items.status <> ?",
			models.InventoryVisibilityPersonal, models.InventoryStatusArchived).
		Order("inventory_items.created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Internal("failed to aggregate inventory", err)
	}
	return items, nil
}

func (s *EventService) GetMyParticipations(userID uuid.UUID) ([]models.EventParticipation, error) {
	var participations []models.EventParticipation
	err := s.db.Preload("Event").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&participations).Error
	if err != nil {
		return nil, apperrors.Internal("failed to fetch participations", err)
	}
	return participations, nil
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

func (s *EventService) generateUniqueSlug(title string) (string, error) {
	base := slugInvalidChars.ReplaceAllString(strings.ToLower(title), "-")
	base = strings.Trim(base, "-")
	if len(base) > 60 {
		base = base[:60]
	}
	if base == "" {
		base = "event"
	}

	candidate := base
	for suffix := 2; ; suffix++ {
		var count int64
		if err := s.db.Model(&models.Event{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", apperrors.Internal("failed to check slug", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}
