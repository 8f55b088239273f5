// internal/services/vendor_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/config"
	"github.com/cardmeet/cardmeet-backend/internal/models"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

type VendorServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	fx      *fixtures
	service *VendorService

	vendor *models.User
	def    *models.CardDefinition
}

func (suite *VendorServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.fx = newFixtures(suite.T(), suite.db)
	suite.service = NewVendorService(suite.db, NewPaymentService(&config.Config{}))

	suite.vendor = suite.fx.user("shop", models.UserRoleVendor, 40)
	suite.def = suite.fx.cardDef("Gyarados")
}

func (suite *VendorServiceTestSuite) TestQuickSaleCash() {
	item := suite.fx.item(suite.vendor, suite.def, floatPtr(30))

	record, err := suite.service.QuickSale(suite.vendor, &QuickSaleRequest{
		InventoryItemID: item.ID,
		SalePrice:       25,
		BuyerName:       "Walk-in",
	})
	suite.Require().NoError(err)

	suite.Equal(25.0, record.SalePrice)
	suite.Equal("cash", record.PaymentMethod)
	suite.False(record.SoldAt.IsZero())

	var sold models.InventoryItem
	suite.Require().NoError(suite.db.First(&sold, "id = ?", item.ID).Error)
	suite.Equal(models.InventoryStatusSold, sold.Status)
}

func (suite *VendorServiceTestSuite) TestQuickSaleNonVendorForbidden() {
	adult := suite.fx.user("bob", models.UserRoleAdult, 30)
	item := suite.fx.item(adult, suite.def, floatPtr(30))

	_, err := suite.service.QuickSale(adult, &QuickSaleRequest{
		InventoryItemID: item.ID,
		SalePrice:       25,
	})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *VendorServiceTestSuite) TestQuickSaleForeignItemForbidden() {
	other := suite.fx.user("rival", models.UserRoleVendor, 38)
	item := suite.fx.item(other, suite.def, floatPtr(30))

	_, err := suite.service.QuickSale(suite.vendor, &QuickSaleRequest{
		InventoryItemID: item.ID,
		SalePrice:       25,
	})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *VendorServiceTestSuite) TestQuickSaleCardWithoutRefRejected() {
	item := suite.fx.item(suite.vendor, suite.def, floatPtr(30))

	_, err := suite.service.QuickSale(suite.vendor, &QuickSaleRequest{
		InventoryItemID: item.ID,
		SalePrice:       25,
		PaymentMethod:   "card",
	})
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindValidation))
}

func (suite *VendorServiceTestSuite) TestQuickSaleSoldItemConflicts() {
	item := suite.fx.item(suite.vendor, suite.def, floatPtr(30))
	req := &QuickSaleRequest{InventoryItemID: item.ID, SalePrice: 25}

	_, err := suite.service.QuickSale(suite.vendor, req)
	suite.Require().NoError(err)

	// Selling the same card twice must fail
	_, err = suite.service.QuickSale(suite.vendor, req)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindConflict))

	var count int64
	suite.db.Model(&models.SaleRecord{}).Count(&count)
	suite.Equal(int64(1), count)
}

func (suite *VendorServiceTestSuite) TestGetSales() {
	for i := 0; i < 3; i++ {
		item := suite.fx.item(suite.vendor, suite.def, floatPtr(30))
		_, err := suite.service.QuickSale(suite.vendor, &QuickSaleRequest{
			InventoryItemID: item.ID,
			SalePrice:       float64(10 * (i + 1)),
		})
		suite.Require().NoError(err)
	}

	sales, total, err := suite.service.GetSales(suite.vendor.ID,
		utils.PaginationParams{Page: 1, Limit: 2, Sort: "sale_price", Order: "desc"})
	suite.Require().NoError(err)
	suite.Equal(int64(3), total)
	suite.Require().Len(sales, 2)
	suite.Equal(30.0, sales[0].SalePrice)
	suite.Equal(20.0, sales[1].SalePrice)
}

func (suite *VendorServiceTestSuite) TestGetDashboard() {
	sold := suite.fx.item(suite.vendor, suite.def, floatPtr(30))
	suite.fx.item(suite.vendor, suite.def, floatPtr(40))

	_, err := suite.service.QuickSale(suite.vendor, &QuickSaleRequest{
		InventoryItemID: sold.ID,
		SalePrice:       25,
	})
	suite.Require().NoError(err)

	dashboard, err := suite.service.GetDashboard(suite.vendor.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), dashboard.TotalSales)
	suite.Equal(25.0, dashboard.TotalRevenue)
	suite.Equal(int64(1), dashboard.SalesToday)
	suite.Equal(25.0, dashboard.RevenueToday)
	suite.Equal(int64(1), dashboard.AvailableItems)
}

func (suite *VendorServiceTestSuite) TestGetDashboardSurfacesQueryErrors() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(sqlDB.Close())

	_, err = suite.service.GetDashboard(suite.vendor.ID)
	suite.Require().Error(err)
	suite.True(apperrors.IsKind(err, apperrors.KindInternal))
}

func TestVendorServiceSuite(t *testing.T) {
	suite.Run(t, new(VendorServiceTestSuite))
}
