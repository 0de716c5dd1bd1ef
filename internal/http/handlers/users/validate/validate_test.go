package validate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/user-service/internal/models"
	"github.com/magabrotheeeer/user-service/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func TestValidateHandler_ServeHTTP(t *testing.T) {
	svc := new(ServiceMock)
	handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

	owner := &models.User{
		ID: 3, Name: "Alice", Email: "a@x.com", PasswordHash: "secret-hash",
		Roles: []models.Role{{ID: 1, Name: "user"}},
	}

	tests := []struct {
		name           string
		mockUser       *models.User
		mockErr        error
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{name: "valid token", mockUser: owner, wantStatusCode: http.StatusOK, wantStatus: "OK"},
		{name: "invalid token", mockErr: auth.ErrInvalidToken, wantStatusCode: http.StatusUnauthorized, wantStatus: "Error", wantError: auth.ErrInvalidToken.Error()},
		{name: "storage error", mockErr: errors.New("boom"), wantStatusCode: http.StatusInternalServerError, wantStatus: "Error", wantError: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.ExpectedCalls = nil
			svc.Calls = nil
			svc.On("ValidateToken", mock.Anything, "T1").Return(tt.mockUser, tt.mockErr).Once()

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("token", "T1")
			ctx := context.WithValue(context.Background(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "reqid123")

			req := httptest.NewRequest(http.MethodGet, "/users/validate/T1", nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			svc.AssertExpectations(t)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret-hash")

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got["status"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
				return
			}
			assert.Equal(t, map[string]any{
				"id": float64(3), "name": "Alice", "email": "a@x.com", "roles": []any{"user"},
			}, got["data"])
		})
	}
}
