// internal/services/trading_service.go
package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/database"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type TradingService struct {
	db   *gorm.DB
	chat ChatProvisioner
}

type ProposeTradeRequest struct {
	EventID         uuid.UUID   `json:"event_id" validate:"required"`
	ReceiverID      uuid.UUID   `json:"receiver_id" validate:"required"`
	ProposerItemIDs []uuid.UUID `json:"proposer_item_ids" validate:"required,min=1"`
	ReceiverItemIDs []uuid.UUID `json:"receiver_item_ids" validate:"required,min=1"`
	ProposerCash    float64     `json:"proposer_cash,omitempty" validate:"omitempty,gte=0"`
	ReceiverCash    float64     `json:"receiver_cash,omitempty" validate:"omitempty,gte=0"`
	Notes           string      `json:"notes,omitempty" validate:"omitempty,max=240"`
}

func NewTradingService(db *gorm.DB, chat ChatProvisioner) *TradingService {
	return &TradingService{
		db:   db,
		chat: chat,
	}
}

// ProposeTrade validates a proposal end to end and, on success,
// creates the trade, freezes per-item valuations into trade items,
// locks both sides' inventory and fans out parental approvals, all in
// one transaction. Nothing is written when any check fails.
func (s *TradingService) ProposeTrade(proposer *models.User, req *ProposeTradeRequest) (*models.Trade, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "invalid trade proposal", err)
	}

	if proposer.ID == req.ReceiverID {
		return nil, apperrors.Validation("receiver must be different from the proposer")
	}

	var event models.Event
	if err := s.db.First(&event, "id = ?", req.EventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event not found")
		}
		return nil, apperrors.Internal("database error", err)
	}

	var receiver models.User
	if err := s.db.First(&receiver, "id = ?", req.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("receiver not found")
		}
		return nil, apperrors.Internal("database error", err)
	}

	if err := s.ensureConfirmedParticipation(req.EventID, proposer.ID, "proposer"); err != nil {
		return nil, err
	}
	if err := s.ensureConfirmedParticipation(req.EventID, req.ReceiverID, "receiver"); err != nil {
		return nil, err
	}

	proposerItemIDs := dedupeIDs(req.ProposerItemIDs)
	receiverItemIDs := dedupeIDs(req.ReceiverItemIDs)

	proposerItems, err := s.loadItems(proposerItemIDs, "proposer")
	if err != nil {
		return nil, err
	}
	receiverItems, err := s.loadItems(receiverItemIDs, "receiver")
	if err != nil {
		return nil, err
	}

	if err := ensureItemsBelongTo(proposerItems, proposer.ID, models.TradeSideProposer); err != nil {
		return nil, err
	}
	if err := ensureItemsBelongTo(receiverItems, req.ReceiverID, models.TradeSideReceiver); err != nil {
		return nil, err
	}

	// Minors cannot transact money at all in a trade they propose.
	if proposer.IsMinor() && (req.ProposerCash > 0 || req.ReceiverCash > 0) {
		return nil, apperrors.Forbidden("minors cannot propose trades involving money")
	}

	proposerValuation := SideValuation(proposerItems, req.ProposerCash)
	receiverValuation := SideValuation(receiverItems, req.ReceiverCash)
	diffPct := ValueDifferencePct(proposerValuation, receiverValuation)

	if diffPct > MaxValueDifferencePct {
		return nil, apperrors.Validation("trade value difference exceeds the 15% limit").
			WithDetails(map[string]interface{}{
				"proposer_valuation":   proposerValuation,
				"receiver_valuation":   receiverValuation,
				"value_difference_pct": diffPct * 100,
			})
	}

	involvesMinor := proposer.IsMinor() || receiver.IsMinor()
	status := models.TradeStatusPendingUser
	if involvesMinor {
		status = models.TradeStatusPendingParentalApproval
	}

	trade := &models.Trade{
		EventID:            req.EventID,
		ProposerID:         proposer.ID,
		ReceiverID:         req.ReceiverID,
		Status:             status,
		ProposerCash:       req.ProposerCash,
		ReceiverCash:       req.ReceiverCash,
		ProposerValuation:  proposerValuation,
		ReceiverValuation:  receiverValuation,
		ValueDifference:    math.Abs(proposerValuation - receiverValuation),
		ValueDifferencePct: diffPct * 100,
		Notes:              req.Notes,
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(trade).Error; err != nil {
			return apperrors.Internal("failed to create trade", err)
		}

		tradeItems := make([]models.TradeItem, 0, len(proposerItems)+len(receiverItems))
		for _, item := range proposerItems {
			tradeItems = append(tradeItems, models.TradeItem{
				TradeID:         trade.ID,
				InventoryItemID: item.ID,
				Side:            models.TradeSideProposer,
				Valuation:       ItemValuation(item),
			})
		}
		for _, item := range receiverItems {
			tradeItems = append(tradeItems, models.TradeItem{
				TradeID:         trade.ID,
				InventoryItemID: item.ID,
				Side:            models.TradeSideReceiver,
				Valuation:       ItemValuation(item),
			})
		}

		if err := tx.Create(&tradeItems).Error; err != nil {
			return apperrors.Internal("failed to create trade items", err)
		}

		allItemIDs := append(append([]uuid.UUID{}, proposerItemIDs...), receiverItemIDs...)
		if err := lockItems(tx, allItemIDs); err != nil {
			return err
		}

		approvals := buildApprovalSet(trade.ID, proposer, &receiver)
		if len(approvals) > 0 {
			if err := tx.Create(&approvals).Error; err != nil {
				return apperrors.Internal("failed to create trade approvals", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"trade_id":    trade.ID,
		"proposer_id": proposer.ID,
		"receiver_id": req.ReceiverID,
		"status":      trade.Status,
	}).Info("Trade proposed")

	return s.reload(trade.ID)
}

// AcceptTrade moves a pending trade to accepted. Only the designated
// receiver may accept, and only once every parental approval has been
// resolved. The chat channel is provisioned before any state change so
// a provider failure leaves the trade untouched.
func (s *TradingService) AcceptTrade(ctx context.Context, user *models.User, tradeID uuid.UUID) (*models.Trade, error) {
	trade, err := s.findTrade(tradeID, "Approvals")
	if err != nil {
		return nil, err
	}

	if err := ensureParticipant(trade, user.ID); err != nil {
		return nil, err
	}

	if trade.Status != models.TradeStatusPendingUser && trade.Status != models.TradeStatusPendingParentalApproval {
		return nil, apperrors.Conflict("trade cannot be accepted in its current status")
	}

	if trade.Status == models.TradeStatusPendingParentalApproval {
		for _, approval := range trade.Approvals {
			if approval.Status == models.ApprovalStatusPending {
				return nil, apperrors.Forbidden("trade is waiting for parental approval")
			}
		}
	}

	if trade.ReceiverID != user.ID {
		return nil, apperrors.Forbidden("only the receiver can accept this trade")
	}

	channelID, err := s.chat.CreateTradeChannel(ctx, trade.ID, []uuid.UUID{trade.ProposerID, trade.ReceiverID})
	if err != nil {
		return nil, apperrors.External("failed to create trade chat channel", err)
	}

	now := time.Now()
	// Guarded update: a concurrent accept or cancel loses the race here.
	result := s.db.Model(&models.Trade{}).
		Where("id = ? AND status = ?", trade.ID, trade.Status).
		Updates(map[string]interface{}{
			"status":          models.TradeStatusAccepted,
			"accepted_at":     now,
			"chat_channel_id": channelID,
		})
	if result.Error != nil {
		return nil, apperrors.Internal("failed to accept trade", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("trade cannot be accepted in its current status")
	}

	logrus.WithFields(logrus.Fields{
		"trade_id":        trade.ID,
		"chat_channel_id": channelID,
	}).Info("Trade accepted")

	return s.reload(trade.ID)
}

// ConfirmHandshake records the calling participant's handshake stamp.
// Re-stamping simply refreshes the timestamp. Once both sides have
// stamped, ownership swaps and the trade completes inside the same
// transaction as the stamp.
func (s *TradingService) ConfirmHandshake(user *models.User, tradeID uuid.UUID) (*models.Trade, error) {
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var trade models.Trade
		if err := tx.First(&trade, "id = ?", tradeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("trade not found")
			}
			return apperrors.Internal("database error", err)
		}

		if err := ensureParticipant(&trade, user.ID); err != nil {
			return err
		}

		if trade.Status != models.TradeStatusAccepted {
			return apperrors.Conflict("handshake can only be confirmed for accepted trades")
		}

		column := "receiver_handshake_at"
		if user.ID == trade.ProposerID {
			column = "proposer_handshake_at"
		}

		// Each caller stamps only their own column, guarded on the
		// accepted status so a concurrent cancel cannot be overwritten.
		result := tx.Model(&models.Trade{}).
			Where("id = ? AND status = ?", trade.ID, models.TradeStatusAccepted).
			Update(column, time.Now())
		if result.Error != nil {
			return apperrors.Internal("failed to record handshake", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("trade status changed concurrently")
		}

		// Re-read both stamps so a stamp written by the other side
		// between our first read and now is not missed.
		if err := tx.First(&trade, "id = ?", tradeID).Error; err != nil {
			return apperrors.Internal("database error", err)
		}

		if trade.ProposerHandshakeAt != nil && trade.ReceiverHandshakeAt != nil {
			return completeTrade(tx, &trade)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(tradeID)
}

// CancelTrade lets either participant abandon a non-terminal trade,
// releasing every locked item back to available.
func (s *TradingService) CancelTrade(user *models.User, tradeID uuid.UUID) (*models.Trade, error) {
	trade, err := s.findTrade(tradeID)
	if err != nil {
		return nil, err
	}

	if err := ensureParticipant(trade, user.ID); err != nil {
		return nil, err
	}

	if trade.Status.IsTerminal() {
		return nil, apperrors.Conflict("trade cannot be cancelled in its current status")
	}

	if err := s.closeTrade(trade, models.TradeStatusCancelled); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"trade_id": trade.ID,
		"user_id":  user.ID,
	}).Info("Trade cancelled")

	return s.reload(trade.ID)
}

// RejectTrade lets the receiver turn down a proposal that is still
// pending, releasing every locked item back to available.
func (s *TradingService) RejectTrade(user *models.User, tradeID uuid.UUID) (*models.Trade, error) {
	trade, err := s.findTrade(tradeID)
	if err != nil {
		return nil, err
	}

	if trade.ReceiverID != user.ID {
		return nil, apperrors.Forbidden("only the receiver can reject this trade")
	}

	if trade.Status != models.TradeStatusPendingUser && trade.Status != models.TradeStatusPendingParentalApproval {
		return nil, apperrors.Conflict("trade cannot be rejected in its current status")
	}

	if err := s.closeTrade(trade, models.TradeStatusRejected); err != nil {
		return nil, err
	}

	logrus.WithField("trade_id", trade.ID).Info("Trade rejected by receiver")

	return s.reload(trade.ID)
}

func (s *TradingService) GetTradesForUser(userID uuid.UUID) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.
		Preload("Items.InventoryItem.CardDefinition").
		Preload("Approvals").
		Preload("Event").
		Where("proposer_id = ? OR receiver_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&trades).Error
	if err != nil {
		return nil, apperrors.Internal("failed to fetch trades", err)
	}
	return trades, nil
}

func (s *TradingService) GetTrade(userID, tradeID uuid.UUID) (*models.Trade, error) {
	trade, err := s.reload(tradeID)
	if err != nil {
		return nil, err
	}
	if err := ensureParticipant(trade, userID); err != nil {
		return nil, err
	}
	return trade, nil
}

// closeTrade releases all locked items and moves the trade to the
// given terminal status in one transaction.
func (s *TradingService) closeTrade(trade *models.Trade, status models.TradeStatus) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := releaseTradeItems(tx, trade.ID); err != nil {
			return err
		}

		now := time.Now()
		result := tx.Model(&models.Trade{}).
			Where("id = ? AND status = ?", trade.ID, trade.Status).
			Updates(map[string]interface{}{
				"status":       status,
				"cancelled_at": now,
			})
		if result.Error != nil {
			return apperrors.Internal("failed to update trade status", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("trade status changed concurrently")
		}
		return nil
	})
}

func (s *TradingService) findTrade(tradeID uuid.UUID, preloads ...string) (*models.Trade, error) {
	query := s.db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}

	var trade models.Trade
	if err := query.First(&trade, "id = ?", tradeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("trade not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	return &trade, nil
}

func (s *TradingService) reload(tradeID uuid.UUID) (*models.Trade, error) {
	return s.findTrade(tradeID,
		"Items.InventoryItem.CardDefinition",
		"Approvals",
		"Event",
	)
}

func (s *TradingService) ensureConfirmedParticipation(eventID, userID uuid.UUID, side string) error {
	var participation models.EventParticipation
	err := s.db.First(&participation, "event_id = ? AND user_id = ?", eventID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Newf(apperrors.KindForbidden, "%s is not confirmed in this event", side)
		}
		return apperrors.Internal("database error", err)
	}
	if participation.Status != models.ParticipationStatusConfirmed {
		return apperrors.Newf(apperrors.KindForbidden, "%s is not confirmed in this event", side)
	}
	return nil
}

func (s *TradingService) loadItems(itemIDs []uuid.UUID, side string) ([]*models.InventoryItem, error) {
	var items []*models.InventoryItem
	if err := s.db.Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
		return nil, apperrors.Internal("database error", err)
	}
	if len(items) != len(itemIDs) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "one or more %s items were not found", side)
	}
	return items, nil
}

func ensureParticipant(trade *models.Trade, userID uuid.UUID) error {
	if trade.ProposerID != userID && trade.ReceiverID != userID {
		return apperrors.Forbidden("you are not part of this trade")
	}
	return nil
}

func ensureItemsBelongTo(items []*models.InventoryItem, ownerID uuid.UUID, side models.TradeSide) error {
	for _, item := range items {
		if item.OwnerID != ownerID {
			return apperrors.Forbidden("selected items contain cards that do not belong to the user").
				WithDetails(map[string]interface{}{"side": side, "item_id": item.ID})
		}
	}
	for _, item := range items {
		if item.Status != models.InventoryStatusAvailable {
			return apperrors.Validation("selected items contain cards that are not available").
				WithDetails(map[string]interface{}{"side": side, "item_id": item.ID})
		}
	}
	return nil
}

// lockItems transitions every item to in_proposal. The availability
// check is repeated inside the locking statement so two concurrent
// proposals over the same item cannot both win: the guarded update
// only touches rows still available, and a shortfall rolls the whole
// proposal back.
func lockItems(tx *gorm.DB, itemIDs []uuid.UUID) error {
	result := tx.Model(&models.InventoryItem{}).
		Where("id IN ? AND status = ?", itemIDs, models.InventoryStatusAvailable).
		Update("status", models.InventoryStatusInProposal)
	if result.Error != nil {
		return apperrors.Internal("failed to lock inventory items", result.Error)
	}
	if result.RowsAffected != int64(len(itemIDs)) {
		return apperrors.Conflict("one or more items are no longer available")
	}
	return nil
}

// releaseTradeItems returns every item tied to the trade to available.
func releaseTradeItems(tx *gorm.DB, tradeID uuid.UUID) error {
	subQuery := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.TradeItem{}).
		Select("inventory_item_id").
		Where("trade_id = ?", tradeID)

	if err := tx.Model(&models.InventoryItem{}).
		Where("id IN (?)", subQuery).
		Update("status", models.InventoryStatusAvailable).Error; err != nil {
		return apperrors.Internal("failed to release trade items", err)
	}
	return nil
}

// completeTrade swaps ownership of both item sets and marks the trade
// completed. Runs inside the caller's transaction.
func completeTrade(tx *gorm.DB, trade *models.Trade) error {
	var tradeItems []models.TradeItem
	if err := tx.Where("trade_id = ?", trade.ID).Find(&tradeItems).Error; err != nil {
		return apperrors.Internal("failed to load trade items", err)
	}

	var proposerItemIDs, receiverItemIDs []uuid.UUID
	for _, item := range tradeItems {
		switch item.Side {
		case models.TradeSideProposer:
			proposerItemIDs = append(proposerItemIDs, item.InventoryItemID)
		case models.TradeSideReceiver:
			receiverItemIDs = append(receiverItemIDs, item.InventoryItemID)
		}
	}

	if len(proposerItemIDs) > 0 {
		if err := tx.Model(&models.InventoryItem{}).
			Where("id IN ?", proposerItemIDs).
			Updates(map[string]interface{}{
				"owner_id": trade.ReceiverID,
				"status":   models.InventoryStatusAvailable,
			}).Error; err != nil {
			return apperrors.Internal("failed to transfer proposer items", err)
		}
	}

	if len(receiverItemIDs) > 0 {
		if err := tx.Model(&models.InventoryItem{}).
			Where("id IN ?", receiverItemIDs).
			Updates(map[string]interface{}{
				"owner_id": trade.ProposerID,
				"status":   models.InventoryStatusAvailable,
			}).Error; err != nil {
			return apperrors.Internal("failed to transfer receiver items", err)
		}
	}

	now := time.Now()
	result := tx.Model(&models.Trade{}).
		Where("id = ? AND status = ?", trade.ID, models.TradeStatusAccepted).
		Updates(map[string]interface{}{
			"status":       models.TradeStatusCompleted,
			"completed_at": now,
		})
	if result.Error != nil {
		return apperrors.Internal("failed to complete trade", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("trade status changed concurrently")
	}

	logrus.WithField("trade_id", trade.ID).Info("Trade completed, ownership swapped")
	return nil
}

// buildApprovalSet returns the explicit 0, 1 or 2 element approval set
// for a proposal: one pending record per minor participant that has a
// linked guardian. A minor without a guardian contributes nothing,
// which leaves the trade parked in pending_parental_approval.
func buildApprovalSet(tradeID uuid.UUID, proposer, receiver *models.User) []models.TradeApproval {
	var approvals []models.TradeApproval
	if proposer.IsMinor() && proposer.GuardianID != nil {
		approvals = append(approvals, models.TradeApproval{
			TradeID:    tradeID,
			GuardianID: *proposer.GuardianID,
			Status:     models.ApprovalStatusPending,
		})
	}
	if receiver.IsMinor() && receiver.GuardianID != nil {
		approvals = append(approvals, models.TradeApproval{
			TradeID:    tradeID,
			GuardianID: *receiver.GuardianID,
			Status:     models.ApprovalStatusPending,
		})
	}
	return approvals
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
