// internal/tests/auth_test.go
package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/models"
)

type AuthAPITestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
}

func (suite *AuthAPITestSuite) SetupTest() {
	suite.db, suite.router = newAPI(suite.T())
}

func (suite *AuthAPITestSuite) TestRegisterAdult() {
	w := doJSON(suite.router, http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name":       "Alice",
		"email":      "alice@example.com",
		"password":   "Sup3rSecret",
		"birth_date": time.Now().AddDate(-30, 0, -1).Format("2006-01-02"),
	})
	suite.Equal(http.StatusCreated, w.Code)

	response := parseBody(suite.T(), w)
	suite.True(response["success"].(bool))

	data := response["data"].(map[string]interface{})
	suite.NotEmpty(data["token"])
	suite.False(data["requires_parental_link"].(bool))

	user := data["user"].(map[string]interface{})
	suite.Equal("adult", user["role"])
}

func (suite *AuthAPITestSuite) TestRegisterMinorRequiresLink() {
	w := doJSON(suite.router, http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name":       "Timmy",
		"email":      "timmy@example.com",
		"password":   "Sup3rSecret",
		"birth_date": time.Now().AddDate(-14, 0, -1).Format("2006-01-02"),
	})
	suite.Equal(http.StatusCreated, w.Code)

	data := parseBody(suite.T(), w)["data"].(map[string]interface{})
	suite.True(data["requires_parental_link"].(bool))

	user := data["user"].(map[string]interface{})
	suite.Equal("minor", user["role"])
	suite.NotEmpty(user["parent_link_code"])
}

func (suite *AuthAPITestSuite) TestRegisterWeakPassword() {
	w := doJSON(suite.router, http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name":       "Alice",
		"email":      "alice@example.com",
		"password":   "weak",
		"birth_date": "1990-01-01",
	})
	suite.Equal(http.StatusBadRequest, w.Code)

	response := parseBody(suite.T(), w)
	suite.False(response["success"].(bool))
}

func (suite *AuthAPITestSuite) TestLogin() {
	register := doJSON(suite.router, http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name":       "Bob",
		"email":      "bob@example.com",
		"password":   "Sup3rSecret",
		"birth_date": "1990-05-05",
	})
	suite.Require().Equal(http.StatusCreated, register.Code)

	w := doJSON(suite.router, http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email":    "bob@example.com",
		"password": "Sup3rSecret",
	})
	suite.Equal(http.StatusOK, w.Code)
	data := parseBody(suite.T(), w)["data"].(map[string]interface{})
	suite.NotEmpty(data["token"])

	w = doJSON(suite.router, http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email":    "bob@example.com",
		"password": "wrong-password",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)

	response := parseBody(suite.T(), w)
	suite.False(response["success"].(bool))
	errBody := response["error"].(map[string]interface{})
	suite.Equal("UNAUTHORIZED", errBody["code"])
}

func (suite *AuthAPITestSuite) TestProfileEndpoint() {
	user, token := seedUser(suite.T(), suite.db, "alice", models.UserRoleAdult, 30)

	w := doJSON(suite.router, http.MethodGet, "/v1/auth/me", token, nil)
	suite.Equal(http.StatusOK, w.Code)

	data := parseBody(suite.T(), w)["data"].(map[string]interface{})
	profile := data["user"].(map[string]interface{})
	suite.Equal(user.Email, profile["email"])

	// No token and a garbage token both get rejected
	w = doJSON(suite.router, http.MethodGet, "/v1/auth/me", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = doJSON(suite.router, http.MethodGet, "/v1/auth/me", "not-a-jwt", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func TestAuthAPISuite(t *testing.T) {
	suite.Run(t, new(AuthAPITestSuite))
}
