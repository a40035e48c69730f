package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Janghoon33/AI-Pick/services"
	"github.com/Janghoon33/AI-Pick/services/account"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAccountService is a mock implementation of AccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Login(ctx context.Context, credential string) (*account.LoginResult, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.LoginResult), args.Error(1)
}

func (m *MockAccountService) Profile(ctx context.Context, userID uuid.UUID) (*account.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Profile), args.Error(1)
}

// MockKeyService is a mock implementation of KeyService
type MockKeyService struct {
	mock.Mock
}

func (m *MockKeyService) SetKey(ctx context.Context, userID uuid.UUID, providerID, apiKey string) (map[string]bool, error) {
	args := m.Called(ctx, userID, providerID, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockKeyService) DeleteKey(ctx context.Context, userID uuid.UUID, providerID string) (map[string]bool, error) {
	args := m.Called(ctx, userID, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockKeyService) KeyStatus(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

var testCookie = CookieSettings{Name: "auth_token", TTL: 7 * 24 * time.Hour, Secure: true}

func keyStatusFrom(t *testing.T, w *httptest.ResponseRecorder) map[string]bool {
	t.Helper()
	var response struct {
		Data KeyStatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response.Data.APIKeyStatus
}

func TestHandleGoogleLogin(t *testing.T) {
	logger := zap.NewNop()

	t.Run("successful login sets session cookie", func(t *testing.T) {
		accounts := new(MockAccountService)
		userID := uuid.New()
		accounts.On("Login", mock.Anything, "google-id-token").Return(&account.LoginResult{
			Token:     "session-jwt",
			ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
			User: account.Profile{
				ID:           userID,
				Email:        "jane@example.com",
				Name:         "Jane",
				APIKeyStatus: map[string]bool{"openai": true, "anthropic": false},
			},
		}, nil)
		handler := NewAccountHandler(accounts, new(MockKeyService), testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleGoogleLogin(w, authedRequest(http.MethodPost, "/api/auth/google", GoogleLoginRequest{Credential: "google-id-token"}, uuid.Nil))

		assert.Equal(t, http.StatusOK, w.Code)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "auth_token", cookies[0].Name)
		assert.Equal(t, "session-jwt", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), float64(cookies[0].MaxAge), 5)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "session-jwt", data["token"])
		user := data["user"].(map[string]interface{})
		assert.Equal(t, "jane@example.com", user["email"])
		assert.Equal(t, true, user["apiKeyStatus"].(map[string]interface{})["openai"])
	})

	t.Run("missing credential field", func(t *testing.T) {
		accounts := new(MockAccountService)
		handler := NewAccountHandler(accounts, new(MockKeyService), testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleGoogleLogin(w, authedRequest(http.MethodPost, "/api/auth/google", `{}`, uuid.Nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		accounts.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("rejected google token", func(t *testing.T) {
		accounts := new(MockAccountService)
		accounts.On("Login", mock.Anything, "forged").
			Return(nil, services.WrapError(services.ErrorTypeUnauthorized, "authentication failed", errors.New("bad signature")))
		handler := NewAccountHandler(accounts, new(MockKeyService), testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleGoogleLogin(w, authedRequest(http.MethodPost, "/api/auth/google", GoogleLoginRequest{Credential: "forged"}, uuid.Nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Result().Cookies())
	})
}

func TestHandleLogout(t *testing.T) {
	handler := NewAccountHandler(new(MockAccountService), new(MockKeyService), testCookie, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleLogout(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestHandleMe(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()

	t.Run("returns profile", func(t *testing.T) {
		accounts := new(MockAccountService)
		accounts.On("Profile", mock.Anything, userID).Return(&account.Profile{
			ID:           userID,
			Email:        "jane@example.com",
			APIKeyStatus: map[string]bool{"openai": false},
		}, nil)
		handler := NewAccountHandler(accounts, new(MockKeyService), testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleMe(w, authedRequest(http.MethodGet, "/api/auth/me", nil, userID))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("deleted user", func(t *testing.T) {
		accounts := new(MockAccountService)
		accounts.On("Profile", mock.Anything, userID).Return(nil, services.ErrUserNotFound)
		handler := NewAccountHandler(accounts, new(MockKeyService), testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleMe(w, authedRequest(http.MethodGet, "/api/auth/me", nil, userID))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		handler := NewAccountHandler(new(MockAccountService), new(MockKeyService), testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleMe(w, authedRequest(http.MethodGet, "/api/auth/me", nil, uuid.Nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleSetKey(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()

	t.Run("stores key and returns status", func(t *testing.T) {
		keys := new(MockKeyService)
		keys.On("SetKey", mock.Anything, userID, "anthropic", "sk-ant-123").
			Return(map[string]bool{"openai": false, "anthropic": true}, nil)
		handler := NewAccountHandler(new(MockAccountService), keys, testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleSetKey(w, authedRequest(http.MethodPost, "/api/auth/api-keys", SetKeyRequest{Service: "anthropic", APIKey: "sk-ant-123"}, userID))

		assert.Equal(t, http.StatusOK, w.Code)
		status := keyStatusFrom(t, w)
		assert.True(t, status["anthropic"])
		assert.False(t, status["openai"])
		assert.NotContains(t, w.Body.String(), "sk-ant-123")
	})

	t.Run("blank key", func(t *testing.T) {
		keys := new(MockKeyService)
		handler := NewAccountHandler(new(MockAccountService), keys, testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleSetKey(w, authedRequest(http.MethodPost, "/api/auth/api-keys", SetKeyRequest{Service: "openai", APIKey: "  "}, userID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "apiKey")
		keys.AssertNotCalled(t, "SetKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		keys := new(MockKeyService)
		keys.On("SetKey", mock.Anything, userID, "bard", "k").Return(nil, services.NewUnsupportedProvider("bard"))
		handler := NewAccountHandler(new(MockAccountService), keys, testCookie, logger)

		w := httptest.NewRecorder()
		handler.HandleSetKey(w, authedRequest(http.MethodPost, "/api/auth/api-keys", SetKeyRequest{Service: "bard", APIKey: "k"}, userID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unsupported_provider")
	})
}

func TestHandleDeleteKey(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()

	withService := func(r *http.Request, service string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("service", service)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("removes key", func(t *testing.T) {
		keys := new(MockKeyService)
		keys.On("DeleteKey", mock.Anything, userID, "openai").Return(map[string]bool{"openai": false}, nil)
		handler := NewAccountHandler(new(MockAccountService), keys, testCookie, logger)

		w := httptest.NewRecorder()
		req := withService(authedRequest(http.MethodDelete, "/api/auth/api-keys/openai", nil, userID), "openai")
		handler.HandleDeleteKey(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, keyStatusFrom(t, w)["openai"])
		keys.AssertExpectations(t)
	})

	t.Run("malformed service id", func(t *testing.T) {
		keys := new(MockKeyService)
		handler := NewAccountHandler(new(MockAccountService), keys, testCookie, logger)

		w := httptest.NewRecorder()
		req := withService(authedRequest(http.MethodDelete, "/api/auth/api-keys/x", nil, userID), "Not Valid")
		handler.HandleDeleteKey(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		keys.AssertNotCalled(t, "DeleteKey", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandleKeyStatus(t *testing.T) {
	userID := uuid.New()
	keys := new(MockKeyService)
	keys.On("KeyStatus", mock.Anything, userID).Return(map[string]bool{"openai": true, "groq": false}, nil)
	handler := NewAccountHandler(new(MockAccountService), keys, testCookie, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleKeyStatus(w, authedRequest(http.MethodGet, "/api/auth/api-keys/status", nil, userID))

	assert.Equal(t, http.StatusOK, w.Code)
	status := keyStatusFrom(t, w)
	assert.True(t, status["openai"])
	assert.False(t, status["groq"])
}
