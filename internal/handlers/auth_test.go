package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"pairlink-server/internal/config"
	"pairlink-server/internal/testutils"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:               "development",
		JWTSecret:                 "test_jwt_secret",
		JWTRefreshSecret:          "test_refresh_secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
	}
}

func setupAuthRouter(db *gorm.DB) *gin.Engine {
	r := testutils.SetupTestRouter()
	h := NewAuthHandler(db, testConfig())
	r.POST("/api/v1/auth/register", h.Register)
	r.POST("/api/v1/auth/login", h.Login)
	return r
}

func postJSON(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	jsonData, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegister_Success(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(mock.NewRows(userColumns()))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r := setupAuthRouter(db)
	resp := postJSON(r, "/api/v1/auth/register", map[string]string{
		"email":        "a@example.com",
		"password":     "correcthorse",
		"nickname":     "Alex",
		"partnerEmail": "b@example.com",
	})

	assert.Equal(t, http.StatusCreated, resp.Code)

	body := decodeEnvelope(t, resp)
	created, _ := body.Data.(map[string]interface{})
	assert.Equal(t, "a@example.com", created["email"])
	assert.Equal(t, "Alex", created["nickname"])
	assert.Equal(t, "b@example.com", created["partnerEmail"])
	// The password hash must never be serialized
	assert.NotContains(t, resp.Body.String(), "password")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_SelfPairingAllowed(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(mock.NewRows(userColumns()))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r := setupAuthRouter(db)
	resp := postJSON(r, "/api/v1/auth/register", map[string]string{
		"email":        "solo@example.com",
		"password":     "correcthorse",
		"nickname":     "Solo",
		"partnerEmail": "solo@example.com",
	})

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRow(mock, senderID, "a@example.com", "b@example.com"))

	r := setupAuthRouter(db)
	resp := postJSON(r, "/api/v1/auth/register", map[string]string{
		"email":        "a@example.com",
		"password":     "correcthorse",
		"nickname":     "Alex",
		"partnerEmail": "b@example.com",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)

	body := decodeEnvelope(t, resp)
	assert.Contains(t, body.Error, "already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_ValidationFailures(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	r := setupAuthRouter(db)

	for name, payload := range map[string]map[string]string{
		"bad email":        {"email": "not-an-email", "password": "correcthorse", "nickname": "Alex", "partnerEmail": "b@example.com"},
		"short password":   {"email": "a@example.com", "password": "short", "nickname": "Alex", "partnerEmail": "b@example.com"},
		"missing nickname": {"email": "a@example.com", "password": "correcthorse", "partnerEmail": "b@example.com"},
		"bad partner":      {"email": "a@example.com", "password": "correcthorse", "nickname": "Alex", "partnerEmail": "nope"},
	} {
		resp := postJSON(r, "/api/v1/auth/register", payload)
		assert.Equal(t, http.StatusBadRequest, resp.Code, "case %q", name)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_UnknownUser(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(mock.NewRows(userColumns()))

	r := setupAuthRouter(db)
	resp := postJSON(r, "/api/v1/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever1",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	// Stored hash does not match the supplied password
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRow(mock, senderID, "a@example.com", "b@example.com"))

	r := setupAuthRouter(db)
	resp := postJSON(r, "/api/v1/auth/login", map[string]string{
		"email":    "a@example.com",
		"password": "wrongpassword",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
