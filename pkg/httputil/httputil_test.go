package httputil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/pkg/actor"
	"github.com/kitchenbook/kitchenbook-backend/pkg/auth"
	"github.com/kitchenbook/kitchenbook-backend/pkg/config"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/messaging"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

const testOwner = "6f1c2b1e-7a55-4f3e-9d2a-0c4b1e2f3a4b"

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.ValidationField("quantity", "must be greater than 0"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.CodeValidation, resp.Error.Code)
	assert.Equal(t, "must be greater than 0", resp.Error.Details["quantity"])
}

func TestError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errors.CodeInternal, decodeResponse(t, rec).Error.Code)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query       string
		wantPage    int
		wantPerPage int
	}{
		{"", 1, 20},
		{"page=3&per_page=50", 3, 50},
		{"page=-1&per_page=500", 1, 20},
		{"page=abc", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/items?"+tt.query, nil)
			page, perPage := Pagination(r)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPerPage, perPage)
		})
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(2, 20, 41)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 0, NewMeta(1, 20, 0).TotalPages)
}

type adjustRequest struct {
	Quantity decimal.Decimal  `json:"quantity" validate:"decimal_gt0"`
	UnitCost *decimal.Decimal `json:"unit_cost" validate:"omitempty,decimal_gte0"`
	Type     string           `json:"transaction_type" validate:"required,oneof=purchase sale"`
}

func TestValidate_Decimals(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	zero := decimal.Zero

	err := Validate(adjustRequest{Quantity: decimal.Zero, UnitCost: &negative, Type: "gift"})
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "must be greater than 0", appErr.Details["quantity"])
	assert.Equal(t, "must not be negative", appErr.Details["unit_cost"])
	assert.Contains(t, appErr.Details["transaction_type"], "must be one of")

	assert.NoError(t, Validate(adjustRequest{Quantity: decimal.NewFromFloat(0.5), UnitCost: &zero, Type: "purchase"}))
	assert.NoError(t, Validate(adjustRequest{Quantity: decimal.NewFromInt(2), Type: "sale"}))
}

func ownerEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := owner.OwnerID(r.Context())
		require.NoError(t, err)
		a := actor.FromContext(r.Context())
		JSON(w, http.StatusOK, map[string]string{"owner_id": id, "actor": a.ID})
	})
}

func TestOwnerMiddleware(t *testing.T) {
	verifier := auth.NewVerifier(&config.AuthConfig{JWTSecret: "test-secret", Issuer: "kitchenbook"})
	token, err := verifier.Sign("user-1", "chef@example.com", testOwner, time.Minute)
	require.NoError(t, err)

	handler := OwnerMiddleware(verifier)(ownerEcho(t))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		path       string
		wantStatus int
		wantActor  string
	}{
		{
			name:       "gateway headers",
			setup:      func(r *http.Request) { r.Header.Set("X-Owner-ID", testOwner); r.Header.Set("X-User-ID", "user-2") },
			wantStatus: http.StatusOK,
			wantActor:  "user-2",
		},
		{
			name:       "bearer token",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusOK,
			wantActor:  "user-1",
		},
		{
			name:       "query token",
			path:       "/api/v1/inventory/ws?access_token=" + token,
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusOK,
			wantActor:  "user-1",
		},
		{
			name:       "invalid owner header",
			setup:      func(r *http.Request) { r.Header.Set("X-Owner-ID", "kitchen-1") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bad token",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing identity",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = "/api/v1/inventory/items"
			}
			r := httptest.NewRequest(http.MethodGet, path, nil)
			tt.setup(r)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				data := decodeResponse(t, rec).Data.(map[string]interface{})
				assert.Equal(t, testOwner, data["owner_id"])
				assert.Equal(t, tt.wantActor, data["actor"])
			}
		})
	}
}

func TestOwnerMiddleware_HealthExempt(t *testing.T) {
	called := false
	handler := OwnerMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		NoContent(w)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestID(t *testing.T) {
	var seen, correlation string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		correlation = messaging.CorrelationID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", correlation)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestLogger_TagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "test")

	handler := RequestID(Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	r := httptest.NewRequest(http.MethodPost, "/items", nil)
	r.Header.Set("X-Request-ID", "req-7")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, float64(http.StatusCreated), entry["status"])
	assert.Equal(t, "/items", entry["path"])
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "test")

	handler := RequestID(Recoverer(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	r := httptest.NewRequest(http.MethodGet, "/items", nil)
	r.Header.Set("X-Request-ID", "req-9")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, decodeResponse(t, rec).Success)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, "panic: boom", entry["error"])
}
