// internal/services/trading_service_test.go
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/models"
)

type TradingServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	fx      *fixtures
	chat    *chatStub
	service *TradingService

	alice *models.User
	bob   *models.User
	event *models.Event
	def   *models.CardDefinition
}

func (suite *TradingServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.fx = newFixtures(suite.T(), suite.db)
	suite.chat = &chatStub{}
	suite.service = NewTradingService(suite.db, suite.chat)

	suite.alice = suite.fx.user("alice", models.UserRoleAdult, 28)
	suite.bob = suite.fx.user("bob", models.UserRoleAdult, 31)
	suite.event = suite.fx.event(suite.alice)
	suite.fx.confirm(suite.event, suite.alice)
	suite.fx.confirm(suite.event, suite.bob)
	suite.def = suite.fx.cardDef("Charizard")
}

func (suite *TradingServiceTestSuite) propose(proposerItems, receiverItems []uuid.UUID) (*models.Trade, error) {
	return suite.service.ProposeTrade(suite.alice, &ProposeTradeRequest{
		EventID:         suite.event.ID,
		ReceiverID:      suite.bob.ID,
		ProposerItemIDs: proposerItems,
		ReceiverItemIDs: receiverItems,
	})
}

func (suite *TradingServiceTestSuite) itemStatus(itemID uuid.UUID) models.InventoryStatus {
	var item models.InventoryItem
	suite.Require().NoError(suite.db.First(&item, "id = ?", itemID).Error)
	return item.Status
}

func (suite *TradingServiceTestSuite) tradeStatusOf(tradeID uuid.UUID) models.TradeStatus {
	var trade models.Trade
	suite.Require().NoError(suite.db.First(&trade, "id = ?", tradeID).Error)
	return trade.Status
}

func (suite *TradingServiceTestSuite) TestProposeTradeWithinLimit() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(110))

	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	suite.Equal(models.TradeStatusPendingUser, trade.Status)
	suite.Equal(100.0, trade.ProposerValuation)
	suite.Equal(110.0, trade.ReceiverValuation)
	suite.InDelta(9.09, trade.ValueDifferencePct, 0.01)
	suite.Len(trade.Items, 2)
	suite.Empty(trade.Approvals)

	// Both items end up locked
	suite.Equal(models.InventoryStatusInProposal, suite.itemStatus(aliceItem.ID))
	suite.Equal(models.InventoryStatusInProposal, suite.itemStatus(bobItem.ID))
}

func (suite *TradingServiceTestSuite) TestProposeTradeExceedsValueLimit() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(120))

	_, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindValidation))

	details := apperrors.DetailsOf(err)
	suite.Require().NotNil(details)
	suite.Equal(100.0, details["proposer_valuation"])
	suite.Equal(120.0, details["receiver_valuation"])

	// Nothing was written, items stay available
	suite.Equal(models.InventoryStatusAvailable, suite.itemStatus(aliceItem.ID))
	suite.Equal(models.InventoryStatusAvailable, suite.itemStatus(bobItem.ID))

	var count int64
	suite.db.Model(&models.Trade{}).Count(&count)
	suite.Zero(count)
}

func (suite *TradingServiceTestSuite) TestProposeTradeCashBalancesValuation() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(120))

	// 100 + 20 cash vs 120 is an even trade
	trade, err := suite.service.ProposeTrade(suite.alice, &ProposeTradeRequest{
		EventID:         suite.event.ID,
		ReceiverID:      suite.bob.ID,
		ProposerItemIDs: []uuid.UUID{aliceItem.ID},
		ReceiverItemIDs: []uuid.UUID{bobItem.ID},
		ProposerCash:    20,
	})
	suite.Require().NoError(err)
	suite.Equal(120.0, trade.ProposerValuation)
	suite.Equal(0.0, trade.ValueDifferencePct)
}

func (suite *TradingServiceTestSuite) TestProposeTradeValuationFallsBackToSalePrice() {
	aliceItem := suite.fx.itemWithSalePrice(suite.alice, suite.def, 95)
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))

	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)
	suite.Equal(95.0, trade.ProposerValuation)
}

func (suite *TradingServiceTestSuite) TestProposeTradeSelfTradeRejected() {
	item := suite.fx.item(suite.alice, suite.def, floatPtr(50))

	_, err := suite.service.ProposeTrade(suite.alice, &ProposeTradeRequest{
		EventID:         suite.event.ID,
		ReceiverID:      suite.alice.ID,
		ProposerItemIDs: []uuid.UUID{item.ID},
		ReceiverItemIDs: []uuid.UUID{item.ID},
	})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindValidation))
}

func (suite *TradingServiceTestSuite) TestProposeTradeUnconfirmedParticipantRejected() {
	carol := suite.fx.user("carol", models.UserRoleAdult, 25)
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(50))
	carolItem := suite.fx.item(carol, suite.def, floatPtr(50))

	_, err := suite.service.ProposeTrade(suite.alice, &ProposeTradeRequest{
		EventID:         suite.event.ID,
		ReceiverID:      carol.ID,
		ProposerItemIDs: []uuid.UUID{aliceItem.ID},
		ReceiverItemIDs: []uuid.UUID{carolItem.ID},
	})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *TradingServiceTestSuite) TestProposeTradeForeignItemRejected() {
	carol := suite.fx.user("carol", models.UserRoleAdult, 25)
	suite.fx.confirm(suite.event, carol)

	carolItem := suite.fx.item(carol, suite.def, floatPtr(50))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(50))

	// Alice tries to offer Carol's card
	_, err := suite.propose([]uuid.UUID{carolItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
	suite.Equal(models.TradeSideProposer, apperrors.DetailsOf(err)["side"])
}

func (suite *TradingServiceTestSuite) TestProposeTradeLockedItemRejected() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(50))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(50))
	suite.Require().NoError(suite.db.Model(bobItem).Update("status", models.InventoryStatusInProposal).Error)

	_, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindValidation))
}

func (suite *TradingServiceTestSuite) TestProposeTradeMinorWithCashForbidden() {
	guardian := suite.fx.user("guardian", models.UserRoleGuardian, 45)
	minor := suite.fx.minorWithGuardian("timmy", guardian)
	suite.fx.confirm(suite.event, minor)

	minorItem := suite.fx.item(minor, suite.def, floatPtr(50))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(50))

	_, err := suite.service.ProposeTrade(minor, &ProposeTradeRequest{
		EventID:         suite.event.ID,
		ReceiverID:      suite.bob.ID,
		ProposerItemIDs: []uuid.UUID{minorItem.ID},
		ReceiverItemIDs: []uuid.UUID{bobItem.ID},
		ReceiverCash:    5,
	})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *TradingServiceTestSuite) TestProposeTradeMinorSpawnsApproval() {
	guardian := suite.fx.user("guardian", models.UserRoleGuardian, 45)
	minor := suite.fx.minorWithGuardian("timmy", guardian)
	suite.fx.confirm(suite.event, minor)

	minorItem := suite.fx.item(minor, suite.def, floatPtr(50))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(50))

	trade, err := suite.service.ProposeTrade(minor, &ProposeTradeRequest{
		EventID:         suite.event.ID,
		ReceiverID:      suite.bob.ID,
		ProposerItemIDs: []uuid.UUID{minorItem.ID},
		ReceiverItemIDs: []uuid.UUID{bobItem.ID},
	})
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusPendingParentalApproval, trade.Status)
	suite.Require().Len(trade.Approvals, 1)
	suite.Equal(guardian.ID, trade.Approvals[0].GuardianID)
	suite.Equal(models.ApprovalStatusPending, trade.Approvals[0].Status)
}

func (suite *TradingServiceTestSuite) TestProposeTradeTwoMinorsTwoApprovals() {
	guardianA := suite.fx.user("guardianA", models.UserRoleGuardian, 45)
	guardianB := suite.fx.user("guardianB", models.UserRoleGuardian, 44)
	minorA := suite.fx.minorWithGuardian("minorA", guardianA)
	minorB := suite.fx.minorWithGuardian("minorB", guardianB)
	suite.fx.confirm(suite.event, minorA)
	suite.fx.confirm(suite.event, minorB)

	itemA := suite.fx.item(minorA, suite.def, floatPtr(50))
	itemB := suite.fx.item(minorB, suite.def, floatPtr(50))

	trade, err := suite.service.ProposeTrade(minorA, &ProposeTradeRequest{
		EventID:         suite.event.ID,
		ReceiverID:      minorB.ID,
		ProposerItemIDs: []uuid.UUID{itemA.ID},
		ReceiverItemIDs: []uuid.UUID{itemB.ID},
	})
	suite.Require().NoError(err)
	suite.Len(trade.Approvals, 2)
}

func (suite *TradingServiceTestSuite) TestConcurrentProposalsExactlyOneWins() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))

	carol := suite.fx.user("carol", models.UserRoleAdult, 25)
	suite.fx.confirm(suite.event, carol)
	carolItem := suite.fx.item(carol, suite.def, floatPtr(100))

	// Two proposals contend for bob's card
	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = suite.service.ProposeTrade(suite.alice, &ProposeTradeRequest{
			EventID:         suite.event.ID,
			ReceiverID:      suite.bob.ID,
			ProposerItemIDs: []uuid.UUID{aliceItem.ID},
			ReceiverItemIDs: []uuid.UUID{bobItem.ID},
		})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = suite.service.ProposeTrade(carol, &ProposeTradeRequest{
			EventID:         suite.event.ID,
			ReceiverID:      suite.bob.ID,
			ProposerItemIDs: []uuid.UUID{carolItem.ID},
			ReceiverItemIDs: []uuid.UUID{bobItem.ID},
		})
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	suite.Equal(1, succeeded)
	suite.Equal(models.InventoryStatusInProposal, suite.itemStatus(bobItem.ID))
}

func (suite *TradingServiceTestSuite) TestAcceptTradeByReceiver() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	accepted, err := suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusAccepted, accepted.Status)
	suite.NotNil(accepted.AcceptedAt)
	suite.Equal("chan-"+trade.ID.String(), accepted.ChatChannelID)
	suite.Equal(1, suite.chat.calls)
}

func (suite *TradingServiceTestSuite) TestAcceptTradeProposerForbidden() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptTrade(context.Background(), suite.alice, trade.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *TradingServiceTestSuite) TestAcceptTradeBlockedByPendingApproval() {
	guardian := suite.fx.user("guardian", models.UserRoleGuardian, 45)
	minor := suite.fx.minorWithGuardian("timmy", guardian)
	suite.fx.confirm(suite.event, minor)

	minorItem := suite.fx.item(minor, suite.def, floatPtr(50))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(50))

	trade, err := suite.service.ProposeTrade(minor, &ProposeTradeRequest{
		EventID:         suite.event.ID,
		ReceiverID:      suite.bob.ID,
		ProposerItemIDs: []uuid.UUID{minorItem.ID},
		ReceiverItemIDs: []uuid.UUID{bobItem.ID},
	})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
	suite.Zero(suite.chat.calls)
}

func (suite *TradingServiceTestSuite) TestAcceptTradeChatFailureLeavesTradeUntouched() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	suite.chat.fail = true
	_, err = suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindExternal))

	reloaded, err := suite.service.GetTrade(suite.bob.ID, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusPendingUser, reloaded.Status)
	suite.Empty(reloaded.ChatChannelID)
}

func (suite *TradingServiceTestSuite) TestHandshakeCompletesTradeAndSwapsOwnership() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().NoError(err)

	half, err := suite.service.ConfirmHandshake(suite.alice, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusAccepted, half.Status)
	suite.NotNil(half.ProposerHandshakeAt)
	suite.Nil(half.ReceiverHandshakeAt)

	done, err := suite.service.ConfirmHandshake(suite.bob, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusCompleted, done.Status)
	suite.NotNil(done.CompletedAt)

	// Ownership swapped, both items available again
	var swappedToBob, swappedToAlice models.InventoryItem
	suite.Require().NoError(suite.db.First(&swappedToBob, "id = ?", aliceItem.ID).Error)
	suite.Require().NoError(suite.db.First(&swappedToAlice, "id = ?", bobItem.ID).Error)
	suite.Equal(suite.bob.ID, swappedToBob.OwnerID)
	suite.Equal(suite.alice.ID, swappedToAlice.OwnerID)
	suite.Equal(models.InventoryStatusAvailable, swappedToBob.Status)
	suite.Equal(models.InventoryStatusAvailable, swappedToAlice.Status)
}

func (suite *TradingServiceTestSuite) TestHandshakeRestampIsIdempotent() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().NoError(err)

	first, err := suite.service.ConfirmHandshake(suite.alice, trade.ID)
	suite.Require().NoError(err)

	again, err := suite.service.ConfirmHandshake(suite.alice, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusAccepted, again.Status)
	suite.NotNil(again.ProposerHandshakeAt)
	suite.False(again.ProposerHandshakeAt.Before(*first.ProposerHandshakeAt))
}

func (suite *TradingServiceTestSuite) TestHandshakeBeforeAcceptRejected() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	_, err = suite.service.ConfirmHandshake(suite.alice, trade.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindConflict))
}

func (suite *TradingServiceTestSuite) TestConcurrentHandshakesCompleteTradeOnce() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().NoError(err)

	// Both sides stamp at the same time. Neither stamp may be lost and
	// the trade must end up completed.
	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = suite.service.ConfirmHandshake(suite.alice, trade.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = suite.service.ConfirmHandshake(suite.bob, trade.ID)
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			suite.True(apperrors.IsKind(err, apperrors.KindConflict))
		}
	}
	suite.GreaterOrEqual(succeeded, 1)

	var reloaded models.Trade
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", trade.ID).Error)
	suite.Equal(models.TradeStatusCompleted, reloaded.Status)
	suite.NotNil(reloaded.ProposerHandshakeAt)
	suite.NotNil(reloaded.ReceiverHandshakeAt)

	var swappedToBob, swappedToAlice models.InventoryItem
	suite.Require().NoError(suite.db.First(&swappedToBob, "id = ?", aliceItem.ID).Error)
	suite.Require().NoError(suite.db.First(&swappedToAlice, "id = ?", bobItem.ID).Error)
	suite.Equal(suite.bob.ID, swappedToBob.OwnerID)
	suite.Equal(suite.alice.ID, swappedToAlice.OwnerID)
}

func (suite *TradingServiceTestSuite) TestHandshakeLeavesOtherStampAlone() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().NoError(err)

	// A stamp committed by the other side after our read must survive
	// this call and complete the trade.
	stamped := time.Now().Add(-time.Minute)
	suite.Require().NoError(suite.db.Model(&models.Trade{}).
		Where("id = ?", trade.ID).
		Update("receiver_handshake_at", stamped).Error)

	done, err := suite.service.ConfirmHandshake(suite.alice, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusCompleted, done.Status)
	suite.NotNil(done.ProposerHandshakeAt)
	suite.NotNil(done.ReceiverHandshakeAt)
}

func (suite *TradingServiceTestSuite) TestHandshakeOnCancelledTradeConflicts() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().NoError(err)
	_, err = suite.service.ConfirmHandshake(suite.alice, trade.ID)
	suite.Require().NoError(err)

	_, err = suite.service.CancelTrade(suite.bob, trade.ID)
	suite.Require().NoError(err)

	// The released items must not be re-swapped by a late handshake
	_, err = suite.service.ConfirmHandshake(suite.bob, trade.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindConflict))

	suite.Equal(models.TradeStatusCancelled, suite.tradeStatusOf(trade.ID))
	suite.Equal(models.InventoryStatusAvailable, suite.itemStatus(aliceItem.ID))
	suite.Equal(models.InventoryStatusAvailable, suite.itemStatus(bobItem.ID))
	var kept models.InventoryItem
	suite.Require().NoError(suite.db.First(&kept, "id = ?", aliceItem.ID).Error)
	suite.Equal(suite.alice.ID, kept.OwnerID)
}

func (suite *TradingServiceTestSuite) TestCancelTradeReleasesItems() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	cancelled, err := suite.service.CancelTrade(suite.alice, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusCancelled, cancelled.Status)
	suite.NotNil(cancelled.CancelledAt)

	suite.Equal(models.InventoryStatusAvailable, suite.itemStatus(aliceItem.ID))
	suite.Equal(models.InventoryStatusAvailable, suite.itemStatus(bobItem.ID))
}

func (suite *TradingServiceTestSuite) TestCancelCompletedTradeRejected() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AcceptTrade(context.Background(), suite.bob, trade.ID)
	suite.Require().NoError(err)
	_, err = suite.service.ConfirmHandshake(suite.alice, trade.ID)
	suite.Require().NoError(err)
	_, err = suite.service.ConfirmHandshake(suite.bob, trade.ID)
	suite.Require().NoError(err)

	_, err = suite.service.CancelTrade(suite.alice, trade.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindConflict))
}

func (suite *TradingServiceTestSuite) TestRejectTradeByReceiver() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	rejected, err := suite.service.RejectTrade(suite.bob, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TradeStatusRejected, rejected.Status)
	suite.Equal(models.InventoryStatusAvailable, suite.itemStatus(aliceItem.ID))

	// Only the receiver may reject
	trade2Item := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	trade2Counter := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade2, err := suite.propose([]uuid.UUID{trade2Item.ID}, []uuid.UUID{trade2Counter.ID})
	suite.Require().NoError(err)

	_, err = suite.service.RejectTrade(suite.alice, trade2.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *TradingServiceTestSuite) TestFrozenValuationSurvivesItemEdit() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	// Raising the item value after the fact does not touch the trade
	suite.Require().NoError(suite.db.Model(&models.InventoryItem{}).
		Where("id = ?", aliceItem.ID).
		Update("estimated_value", 500).Error)

	reloaded, err := suite.service.GetTrade(suite.alice.ID, trade.ID)
	suite.Require().NoError(err)
	suite.Equal(100.0, reloaded.ProposerValuation)
	for _, item := range reloaded.Items {
		if item.InventoryItemID == aliceItem.ID {
			suite.Equal(100.0, item.Valuation)
		}
	}
}

func (suite *TradingServiceTestSuite) TestGetTradeOutsiderForbidden() {
	aliceItem := suite.fx.item(suite.alice, suite.def, floatPtr(100))
	bobItem := suite.fx.item(suite.bob, suite.def, floatPtr(100))
	trade, err := suite.propose([]uuid.UUID{aliceItem.ID}, []uuid.UUID{bobItem.ID})
	suite.Require().NoError(err)

	carol := suite.fx.user("carol", models.UserRoleAdult, 25)
	_, err = suite.service.GetTrade(carol.ID, trade.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestTradingServiceSuite(t *testing.T) {
	suite.Run(t, new(TradingServiceTestSuite))
}
