package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainpay-gateway/internal/adapter/http/middleware"
	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/internal/core/ports/mocks"
	"chainpay-gateway/pkg/apperror"
	"chainpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asMerchant injects an authenticated identity the way JWTAuth does.
func asMerchant(merchantID uuid.UUID, role domain.MerchantRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxMerchantID, merchantID)
		c.Set(middleware.CtxRole, role)
		c.Next()
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPaymentCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	handshake := mocks.NewMockHandshakeService(ctrl)
	h := NewPaymentHandler(handshake, nil)

	merchantID := uuid.New()
	intent := &domain.PaymentIntent{
		ID:          uuid.New(),
		MerchantID:  merchantID,
		GrossAmount: decimal.RequireFromString("10.2"),
		BaseAmount:  decimal.RequireFromString("10"),
		FeeAmount:   decimal.RequireFromString("0.2"),
		Status:      domain.PaymentStatusCreated,
	}
	handshake.EXPECT().CreateIntent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req ports.CreateIntentRequest) (*domain.PaymentIntent, error) {
			assert.Equal(t, merchantID, req.MerchantID)
			assert.True(t, decimal.RequireFromString("10").Equal(req.BaseAmount))
			return intent, nil
		})

	r := gin.New()
	r.POST("/payments", asMerchant(merchantID, domain.MerchantRoleMerchant), h.Create)

	w := doJSON(t, r, http.MethodPost, "/payments", gin.H{"amount": "10", "memo": "order"})
	assert.Equal(t, http.StatusCreated, w.Code)

	env := decodeEnvelope(t, w)
	data := env["data"].(map[string]any)
	assert.Equal(t, "10.2", data["gross_amount"])
	assert.Equal(t, "CREATED", data["status"])
}

func TestPaymentCreate_BadAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewPaymentHandler(mocks.NewMockHandshakeService(ctrl), nil)

	r := gin.New()
	r.POST("/payments", asMerchant(uuid.New(), domain.MerchantRoleMerchant), h.Create)

	w := doJSON(t, r, http.MethodPost, "/payments", gin.H{"amount": "ten"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentApprove_MapsAmountMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	handshake := mocks.NewMockHandshakeService(ctrl)
	h := NewPaymentHandler(handshake, nil)

	handshake.EXPECT().ApprovePayment(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrAmountMismatch())

	r := gin.New()
	r.POST("/payments/approve", asMerchant(uuid.New(), domain.MerchantRoleMerchant), h.Approve)

	w := doJSON(t, r, http.MethodPost, "/payments/approve", gin.H{
		"payment_id": "pi_1",
		"intent_id":  uuid.New().String(),
		"amount":     "10.2",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var env response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "STATE_004", env.ErrorCode)
}

func TestPaymentComplete_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	handshake := mocks.NewMockHandshakeService(ctrl)
	h := NewPaymentHandler(handshake, nil)

	txHash := "h1"
	handshake.EXPECT().CompletePayment(gomock.Any(), ports.CompletePaymentRequest{
		ExternalPaymentID: "pi_1",
		TxHash:            txHash,
	}).Return(&domain.PaymentIntent{
		ID:             uuid.New(),
		Status:         domain.PaymentStatusCompleted,
		ExternalTxHash: &txHash,
	}, nil)

	r := gin.New()
	r.POST("/payments/complete", asMerchant(uuid.New(), domain.MerchantRoleMerchant), h.Complete)

	w := doJSON(t, r, http.MethodPost, "/payments/complete", gin.H{
		"payment_id": "pi_1",
		"tx_hash":    txHash,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	data := env["data"].(map[string]any)
	assert.Equal(t, "COMPLETED", data["status"])
	assert.Equal(t, "h1", data["external_tx_hash"])
}

func TestPaymentCancel_InvalidUUID(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewPaymentHandler(mocks.NewMockHandshakeService(ctrl), nil)

	r := gin.New()
	r.POST("/payments/:id/cancel", asMerchant(uuid.New(), domain.MerchantRoleMerchant), h.Cancel)

	w := doJSON(t, r, http.MethodPost, "/payments/not-a-uuid/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentFail_Acknowledges(t *testing.T) {
	ctrl := gomock.NewController(t)
	handshake := mocks.NewMockHandshakeService(ctrl)
	h := NewPaymentHandler(handshake, nil)

	handshake.EXPECT().FailPayment(gomock.Any(), "pi_9", "user cancelled in wallet").Return(nil)

	r := gin.New()
	r.POST("/payments/fail", asMerchant(uuid.New(), domain.MerchantRoleMerchant), h.Fail)

	w := doJSON(t, r, http.MethodPost, "/payments/fail", gin.H{
		"payment_id": "pi_9",
		"reason":     "user cancelled in wallet",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
