// internal/services/parental_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/database"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type ParentalService struct {
	db *gorm.DB
}

type LinkAccountRequest struct {
	ParentLinkCode string `json:"parent_link_code" validate:"required,len=8"`
}

type DecisionRequest struct {
	Note string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type LinkAccountResult struct {
	ChildID   uuid.UUID `json:"child_id"`
	ChildName string    `json:"child_name"`
	LinkedTo  uuid.UUID `json:"linked_to"`
}

type DependentSummary struct {
	ID               uuid.UUID                   `json:"id"`
	Name             string                      `json:"name"`
	Email            string                      `json:"email"`
	Role             models.UserRole             `json:"role"`
	InventoryCount   int                         `json:"inventory_count"`
	PendingEvents    []models.EventParticipation `json:"pending_events"`
	PendingApprovals []models.TradeApproval      `json:"pending_approvals"`
}

func NewParentalService(db *gorm.DB) *ParentalService {
	return &ParentalService{db: db}
}

// LinkAccount binds a minor to the calling guardian using the one-time
// code issued at registration. Linking is idempotent for the same
// guardian and refused when the minor already belongs to another one.
func (s *ParentalService) LinkAccount(guardianID uuid.UUID, req *LinkAccountRequest) (*LinkAccountResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid link request", err)
	}

	var minor models.User
	err := s.db.First(&minor, "parent_link_code = ? AND role = ?", req.ParentLinkCode, models.UserRoleMinor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("parent link code is invalid")
		}
		return nil, apperrors.Internal("database error", err)
	}

	if minor.ParentLinkCodeExpires != nil && minor.ParentLinkCodeExpires.Before(time.Now()) {
		return nil, apperrors.Conflict("parent link code has expired")
	}

	if minor.GuardianID != nil && *minor.GuardianID != guardianID {
		return nil, apperrors.Conflict("this user is already linked to another guardian")
	}

	if minor.GuardianID != nil && *minor.GuardianID == guardianID {
		return &LinkAccountResult{ChildID: minor.ID, ChildName: minor.Name, LinkedTo: guardianID}, nil
	}

	updates := map[string]interface{}{
		"guardian_id":              guardianID,
		"parent_link_code":         nil,
		"parent_link_code_expires": nil,
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", minor.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Internal("failed to link guardian", err)
	}

	logrus.WithFields(logrus.Fields{
		"guardian_id": guardianID,
		"minor_id":    minor.ID,
	}).Info("Guardian linked to minor")

	return &LinkAccountResult{ChildID: minor.ID, ChildName: minor.Name, LinkedTo: guardianID}, nil
}

func (s *ParentalService) ListPendingTradeApprovals(guardianID uuid.UUID) ([]models.TradeApproval, error) {
	var approvals []models.TradeApproval
	err := s.db.
		Preload("Trade.Event").
		Preload("Trade.Proposer").
		Preload("Trade.Receiver").
		Where("guardian_id = ? AND status = ?", guardianID, models.ApprovalStatusPending).
		Order("created_at ASC").
		Find(&approvals).Error
	if err != nil {
		return nil, apperrors.Internal("failed to fetch pending approvals", err)
	}
	return approvals, nil
}

// ApproveTrade records one guardian's approval. When it was the last
// pending approval the trade unblocks to pending_user; otherwise the
// trade status is untouched.
func (s *ParentalService) ApproveTrade(guardianID, approvalID uuid.UUID, req *DecisionRequest) (*models.TradeApproval, error) {
	return s.decideTradeApproval(guardianID, approvalID, true, req)
}

// RejectTrade records one guardian's rejection, which kills the trade
// immediately and releases its items even if other approvals are still
// pending.
func (s *ParentalService) RejectTrade(guardianID, approvalID uuid.UUID, req *DecisionRequest) (*models.TradeApproval, error) {
	return s.decideTradeApproval(guardianID, approvalID, false, req)
}

func (s *ParentalService) decideTradeApproval(guardianID, approvalID uuid.UUID, approve bool, req *DecisionRequest) (*models.TradeApproval, error) {
	if req == nil {
		req = &DecisionRequest{}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid decision request", err)
	}

	var approval models.TradeApproval
	err := s.db.First(&approval, "id = ?", approvalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("trade approval not found")
		}
		return nil, apperrors.Internal("database error", err)
	}

	if approval.GuardianID != guardianID {
		return nil, apperrors.Forbidden("guardian is not linked to this approval")
	}

	if approval.Status != models.ApprovalStatusPending {
		return nil, apperrors.Conflict("approval already processed")
	}

	now := time.Now()
	status := models.ApprovalStatusApproved
	if !approve {
		status = models.ApprovalStatusRejected
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		// Guarded against a concurrent decision on the same record.
		result := tx.Model(&models.TradeApproval{}).
			Where("id = ? AND status = ?", approval.ID, models.ApprovalStatusPending).
			Updates(map[string]interface{}{
				"status":        status,
				"decision_at":   now,
				"decision_note": req.Note,
			})
		if result.Error != nil {
			return apperrors.Internal("failed to update approval", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("approval already processed")
		}

		if !approve {
			// One rejection anywhere kills the trade outright.
			if err := releaseTradeItems(tx, approval.TradeID); err != nil {
				return err
			}
			if err := tx.Model(&models.Trade{}).
				Where("id = ? AND status = ?", approval.TradeID, models.TradeStatusPendingParentalApproval).
				Updates(map[string]interface{}{
					"status":       models.TradeStatusRejected,
					"cancelled_at": now,
				}).Error; err != nil {
				return apperrors.Internal("failed to reject trade", err)
			}
			return nil
		}

		var pendingCount int64
		if err := tx.Model(&models.TradeApproval{}).
			Where("trade_id = ? AND status = ?", approval.TradeID, models.ApprovalStatusPending).
			Count(&pendingCount).Error; err != nil {
			return apperrors.Internal("failed to count pending approvals", err)
		}

		if pendingCount == 0 {
			if err := tx.Model(&models.Trade{}).
				Where("id = ? AND status = ?", approval.TradeID, models.TradeStatusPendingParentalApproval).
				Update("status", models.TradeStatusPendingUser).Error; err != nil {
				return apperrors.Internal("failed to unblock trade", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"approval_id": approval.ID,
		"trade_id":    approval.TradeID,
		"guardian_id": guardianID,
		"approved":    approve,
	}).Info("Trade approval decided")

	approval.Status = status
	approval.DecisionAt = &now
	approval.DecisionNote = req.Note
	return &approval, nil
}

func (s *ParentalService) ListPendingEventApprovals(guardianID uuid.UUID) ([]models.EventParticipation, error) {
	var participations []models.EventParticipation
	err := s.db.
		Preload("Event").
		Preload("User").
		Joins("JOIN users ON users.id = event_participations.user_id").
		Where("users.guardian_id = ? AND event_participations.status = ?",
			guardianID, models.ParticipationStatusPendingParentalApproval).
		Order("event_participations.created_at ASC").
		Find(&participations).Error
	if err != nil {
		return nil, apperrors.Internal("failed to fetch pending event approvals", err)
	}
	return participations, nil
}

// ApproveEventParticipation confirms a dependent's presence at an event.
func (s *ParentalService) ApproveEventParticipation(guardianID, participationID uuid.UUID, req *DecisionRequest) (*models.EventParticipation, error) {
	return s.decideEventParticipation(guardianID, participationID, true, req)
}

// RejectEventParticipation turns down a dependent's presence at an event.
func (s *ParentalService) RejectEventParticipation(guardianID, participationID uuid.UUID, req *DecisionRequest) (*models.EventParticipation, error) {
	return s.decideEventParticipation(guardianID, participationID, false, req)
}

func (s *ParentalService) decideEventParticipation(guardianID, participationID uuid.UUID, approve bool, req *DecisionRequest) (*models.EventParticipation, error) {
	if req == nil {
		req = &DecisionRequest{}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid decision request", err)
	}

	var participation models.EventParticipation
	err := s.db.Preload("User").Preload("Event").First(&participation, "id = ?", participationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event participation not found")
		}
		return nil, apperrors.Internal("database error", err)
	}

	if participation.User.GuardianID == nil || *participation.User.GuardianID != guardianID {
		return nil, apperrors.Forbidden("guardian is not linked to this user")
	}

	if participation.Status != models.ParticipationStatusPendingParentalApproval ||
		participation.ParentalStatus == nil || *participation.ParentalStatus != models.ApprovalStatusPending {
		return nil, apperrors.Conflict("participation is not awaiting parental approval")
	}

	now := time.Now()
	newStatus := models.ParticipationStatusConfirmed
	parentalStatus := models.ApprovalStatusApproved
	if !approve {
		newStatus = models.ParticipationStatusRejected
		parentalStatus = models.ApprovalStatusRejected
	}

	updates := map[string]interface{}{
		"status":                 newStatus,
		"parental_status":        parentalStatus,
		"parental_decided_by_id": guardianID,
		"parental_decided_at":    now,
		"parental_decision_note": req.Note,
	}
	if err := s.db.Model(&models.EventParticipation{}).Where("id = ?", participation.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Internal("failed to update participation", err)
	}

	participation.Status = newStatus
	participation.ParentalStatus = &parentalStatus
	participation.ParentalDecidedByID = &guardianID
	participation.ParentalDecidedAt = &now
	participation.ParentalDecisionNote = req.Note
	return &participation, nil
}

// GetDashboard aggregates each dependent's inventory size and pending
// approvals for the guardian home screen.
func (s *ParentalService) GetDashboard(guardianID uuid.UUID) ([]DependentSummary, error) {
	var dependents []models.User
	if err := s.db.Where("guardian_id = ?", guardianID).Find(&dependents).Error; err != nil {
		return nil, apperrors.Internal("failed to fetch dependents", err)
	}

	summaries := make([]DependentSummary, 0, len(dependents))
	for _, child := range dependents {
		var inventoryCount int64
		if err := s.db.Model(&models.InventoryItem{}).
			Where("owner_id = ?", child.ID).
			Count(&inventoryCount).Error; err != nil {
			return nil, apperrors.Internal("failed to count inventory", err)
		}

		var pendingEvents []models.EventParticipation
		if err := s.db.Preload("Event").
			Where("user_id = ? AND status = ?", child.ID, models.ParticipationStatusPendingParentalApproval).
			Find(&pendingEvents).Error; err != nil {
			return nil, apperrors.Internal("failed to fetch pending events", err)
		}

		var pendingApprovals []models.TradeApproval
		if err := s.db.Preload("Trade.Event").
			Joins("JOIN trades ON trades.id = trade_approvals.trade_id").
			Where("trade_approvals.guardian_id = ? AND trade_approvals.status = ? AND (trades.proposer_id = ? OR trades.receiver_id = ?)",
				guardianID, models.ApprovalStatusPending, child.ID, child.ID).
			Find(&pendingApprovals).Error; err != nil {
			return nil, apperrors.Internal("failed to fetch pending approvals", err)
		}

		summaries = append(summaries, DependentSummary{
			ID:               child.ID,
			Name:             child.Name,
			Email:            child.Email,
			Role:             child.Role,
			InventoryCount:   int(inventoryCount),
			PendingEvents:    pendingEvents,
			PendingApprovals: pendingApprovals,
		})
	}

	return summaries, nil
}
