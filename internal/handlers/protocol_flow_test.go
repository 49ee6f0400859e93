package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"pairlink-server/internal/testutils"
)

// routerFor wires the full protocol surface for one caller identity.
func routerFor(db *gorm.DB, callerID string) *gin.Engine {
	r := testutils.SetupTestRouter()
	requests := NewClearRequestHandler(db, nil)
	executor := NewClearExecutorHandler(db, nil)
	group := r.Group("/api/v1", testutils.AuthAs(callerID))
	group.POST("/clear-requests", requests.CreateRequest)
	group.POST("/clear-requests/:requestId/respond", requests.Respond)
	group.POST("/clear-messages", executor.ClearMessages)
	return r
}

// The full happy path of the mutual-consent protocol: A requests, B accepts
// with "ok", A finalizes, every message between them is deleted and the
// request completes.
func TestClearProtocol_EndToEnd(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	senderRouter := routerFor(db, senderID)
	receiverRouter := routerFor(db, partnerID)

	// A creates the request
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRow(mock, senderID, "a@example.com", "b@example.com"))
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(userRow(mock, partnerID, "b@example.com", "a@example.com"))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `clear_requests`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	resp := postJSON(senderRouter, "/api/v1/clear-requests", map[string]string{
		"senderMessage": "let's start over",
	})
	assert.Equal(t, http.StatusCreated, resp.Code)

	created, _ := decodeEnvelope(t, resp).Data.(map[string]interface{})
	assert.Equal(t, "pending", created["status"])

	// B accepts with "ok"
	mock.ExpectQuery("SELECT (.+) FROM `clear_requests`").
		WillReturnRows(clearRequestRow(mock, "pending", senderID, partnerID))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `clear_requests`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp = postJSON(receiverRouter, "/api/v1/clear-requests/"+requestID+"/respond", map[string]string{
		"action":          "accepted",
		"responseMessage": "ok",
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	accepted, _ := decodeEnvelope(t, resp).Data.(map[string]interface{})
	assert.Equal(t, "accepted", accepted["status"])
	assert.Equal(t, "ok", accepted["receiverResponseMessage"])

	// A finalizes; 2 + 3 messages existed between them
	mock.ExpectQuery("SELECT (.+) FROM `clear_requests`").
		WillReturnRows(clearRequestRow(mock, "accepted", senderID, partnerID))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `messages`").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `messages`").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `clear_requests`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp = postJSON(senderRouter, "/api/v1/clear-messages", map[string]string{
		"clearRequestId": requestID,
		"userId":         senderID,
		"partnerId":      partnerID,
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	result := decodeClearResponse(t, resp)
	assert.True(t, result.Success)
	if assert.NotNil(t, result.DeletedCount) {
		assert.Equal(t, int64(5), *result.DeletedCount)
	}

	// A second finalize attempt fails closed: the request is now completed
	mock.ExpectQuery("SELECT (.+) FROM `clear_requests`").
		WillReturnRows(clearRequestRow(mock, "completed", senderID, partnerID))

	resp = postJSON(senderRouter, "/api/v1/clear-messages", map[string]string{
		"clearRequestId": requestID,
		"userId":         senderID,
		"partnerId":      partnerID,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.False(t, decodeClearResponse(t, resp).Success)

	assert.NoError(t, mock.ExpectationsWereMet())
}
