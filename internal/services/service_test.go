// internal/services/service_test.go
package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cardmeet/cardmeet-backend/internal/models"
)

// newTestDB opens an isolated in-memory database. A single connection
// serializes concurrent access, which keeps the guarded-update paths
// honest without a postgres instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.CardDefinition{},
		&models.InventoryItem{},
		&models.Event{},
		&models.EventParticipation{},
		&models.Trade{},
		&models.TradeItem{},
		&models.TradeApproval{},
		&models.SaleRecord{},
	)
	require.NoError(t, err)

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

type fixtures struct {
	t  *testing.T
	db *gorm.DB
}

func newFixtures(t *testing.T, db *gorm.DB) *fixtures {
	return &fixtures{t: t, db: db}
}

func (f *fixtures) user(name string, role models.UserRole, age int) *models.User {
	f.t.Helper()

	user := &models.User{
		Name:      name,
		Email:     fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		BirthDate: time.Now().AddDate(-age, 0, -1),
		Role:      role,
	}
	require.NoError(f.t, user.SetPassword("Sup3rSecret"))
	require.NoError(f.t, f.db.Create(user).Error)
	return user
}

func (f *fixtures) minorWithGuardian(name string, guardian *models.User) *models.User {
	f.t.Helper()

	minor := f.user(name, models.UserRoleMinor, 14)
	require.NoError(f.t, f.db.Model(minor).Update("guardian_id", guardian.ID).Error)
	minor.GuardianID = &guardian.ID
	return minor
}

func (f *fixtures) event(host *models.User) *models.Event {
	f.t.Helper()

	event := &models.Event{
		Slug:    fmt.Sprintf("meetup-%s", uuid.NewString()[:8]),
		Title:   "Saturday Meetup",
		HostID:  host.ID,
		StartAt: time.Now().Add(24 * time.Hour),
		EndAt:   time.Now().Add(28 * time.Hour),
		Status:  models.EventStatusValidated,
	}
	require.NoError(f.t, f.db.Create(event).Error)
	return event
}

func (f *fixtures) confirm(event *models.Event, user *models.User) {
	f.t.Helper()

	participation := &models.EventParticipation{
		EventID: event.ID,
		UserID:  user.ID,
		Status:  models.ParticipationStatusConfirmed,
	}
	require.NoError(f.t, f.db.Create(participation).Error)
}

func (f *fixtures) cardDef(name string) *models.CardDefinition {
	f.t.Helper()

	def := &models.CardDefinition{
		ID:      fmt.Sprintf("card-%s", uuid.NewString()[:8]),
		Name:    name,
		SetName: "Base Set",
	}
	require.NoError(f.t, f.db.Create(def).Error)
	return def
}

func (f *fixtures) item(owner *models.User, def *models.CardDefinition, estimated *float64) *models.InventoryItem {
	f.t.Helper()

	item := &models.InventoryItem{
		OwnerID:          owner.ID,
		CardDefinitionID: def.ID,
		Quantity:         1,
		Condition:        models.CardConditionNearMint,
		Visibility:       models.InventoryVisibilityPublic,
		Status:           models.InventoryStatusAvailable,
		EstimatedValue:   estimated,
	}
	require.NoError(f.t, f.db.Create(item).Error)
	return item
}

func (f *fixtures) itemWithSalePrice(owner *models.User, def *models.CardDefinition, salePrice float64) *models.InventoryItem {
	f.t.Helper()

	item := &models.InventoryItem{
		OwnerID:          owner.ID,
		CardDefinitionID: def.ID,
		Quantity:         1,
		Condition:        models.CardConditionNearMint,
		Visibility:       models.InventoryVisibilityPublic,
		Status:           models.InventoryStatusAvailable,
		DesiredSalePrice: &salePrice,
	}
	require.NoError(f.t, f.db.Create(item).Error)
	return item
}

func floatPtr(v float64) *float64 { return &v }

// chatStub satisfies ChatProvisioner without network calls.
type chatStub struct {
	fail  bool
	calls int
}

func (c *chatStub) CreateTradeChannel(_ context.Context, tradeID uuid.UUID, _ []uuid.UUID) (string, error) {
	c.calls++
	if c.fail {
		return "", fmt.Errorf("stream unavailable")
	}
	return "chan-" + tradeID.String(), nil
}
