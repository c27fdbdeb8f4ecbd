package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("edit 2: %w", common.ErrInvalidParticipant), http.StatusBadRequest},
		{common.ErrUnauthorized, http.StatusUnauthorized},
		{common.ErrNotFound, http.StatusNotFound},
		{common.ErrNotReady, http.StatusConflict},
		{common.ErrStageConflict, http.StatusConflict},
		{common.ErrDuplicateEntry, http.StatusConflict},
		{common.ErrTooFewParticipants, http.StatusUnprocessableEntity},
		{&services.InfeasibleError{}, http.StatusUnprocessableEntity},
		{common.ErrGenerationExhausted, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestError_InfeasibleCarriesBlocking(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	blocking := []services.ParticipantRef{{ID: uuid.New(), Name: "Ana"}}
	Error(c, &services.InfeasibleError{Blocking: blocking})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, blocking, body.Blocking)
	assert.Contains(t, body.Error, "Ana")
}

func TestError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, errors.New("dial tcp 10.0.0.3:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
	assert.True(t, c.IsAborted())
}
