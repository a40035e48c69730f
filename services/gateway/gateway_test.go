package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Janghoon33/AI-Pick/config"
	"github.com/Janghoon33/AI-Pick/models"
	"github.com/Janghoon33/AI-Pick/repositories"
	"github.com/Janghoon33/AI-Pick/repositories/mocks"
	"github.com/Janghoon33/AI-Pick/services"
	"github.com/Janghoon33/AI-Pick/services/providers"
	"github.com/Janghoon33/AI-Pick/services/providers/anthropic"
	"github.com/Janghoon33/AI-Pick/services/providers/google"
	"github.com/Janghoon33/AI-Pick/services/providers/openai"
	"github.com/Janghoon33/AI-Pick/services/vault"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const openaiOK = `{"choices":[{"message":{"role":"assistant","content":"four"}}],"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}}`

type fixture struct {
	gw     *Gateway
	users  *mocks.MockUserRepository
	vault  *vault.Vault
	user   *models.User
	hits   *atomic.Int32
	logs   *observer.ObservedLogs
	server *httptest.Server
}

// newFixture serves every provider from one httptest server; handler receives the provider id
func newFixture(t *testing.T, handler func(id string, w http.ResponseWriter, r *http.Request)) *fixture {
	t.Helper()

	hits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(strings.TrimPrefix(r.URL.Path, "/"), w, r)
	}))
	t.Cleanup(server.Close)

	descriptors := []providers.Descriptor{
		{ID: "openai", Name: "GPT-4o mini", Model: "gpt-4o-mini", Endpoint: server.URL + "/openai", Family: openai.Family},
		{ID: "anthropic", Name: "Claude 3.5 Sonnet", Model: "claude-3-5-sonnet-20241022", Endpoint: server.URL + "/anthropic", Family: anthropic.Family},
		{ID: "google", Name: "Gemini 2.5 Flash", Model: "gemini-2.5-flash", Endpoint: server.URL + "/google", Family: google.Family},
		{ID: "groq", Name: "Llama 4 Scout", Model: "llama-4-scout", Endpoint: server.URL + "/groq", Family: openai.Family},
	}
	registry, err := providers.NewRegistry(descriptors, map[providers.Family]providers.AdapterFactory{
		openai.Family:    openai.New,
		anthropic.Family: anthropic.New,
		google.Family:    google.New,
	})
	require.NoError(t, err)

	v, err := vault.New(config.VaultConfig{EncryptionKey: strings.Repeat("k", 32), EncryptionSalt: "0123456789abcdef"}, true, zap.NewNop())
	require.NoError(t, err)

	user := &models.User{ID: uuid.New(), Email: "a@example.com"}
	for _, id := range []string{"openai", "anthropic", "google", "groq"} {
		require.NoError(t, v.SetSecret(user, id, "key-"+id))
	}

	core, logs := observer.New(zapcore.DebugLevel)
	users := new(mocks.MockUserRepository)
	gw := New(registry, v, users, server.Client(), config.GatewayConfig{MaxFanOut: 3}, zap.New(core))

	return &fixture{gw: gw, users: users, vault: v, user: user, hits: hits, logs: logs, server: server}
}

func TestGateway_Ask_Success(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]any
	f := newFixture(t, func(id string, w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, openaiOK)
	})

	result, err := f.gw.Ask(context.Background(), f.user, "openai", "2+2?")
	require.NoError(t, err)

	assert.Equal(t, &Result{
		Provider:     "openai",
		ProviderName: "GPT-4o mini",
		Answer:       "four",
		Usage:        providers.Usage{InputTokens: 5, OutputTokens: 1, TotalTokens: 6},
	}, result)
	assert.Equal(t, "Bearer key-openai", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])

	entries := f.logs.FilterMessage("provider call completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "openai", entries[0].ContextMap()["provider"])
	for _, e := range f.logs.All() {
		for _, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "key-openai")
		}
	}
}

func TestGateway_Ask_QueryAuthenticatedProvider(t *testing.T) {
	var gotKey string
	f := newFixture(t, func(id string, w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`)
	})

	result, err := f.gw.Ask(context.Background(), f.user, "google", "hello")
	require.NoError(t, err)

	assert.Equal(t, "key-google", gotKey)
	assert.Equal(t, "hi", result.Answer)
	assert.Equal(t, 0, result.Usage.TotalTokens)
}

func TestGateway_Ask_OversizedResponseLogged(t *testing.T) {
	f := newFixture(t, func(id string, w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"pad":"`+strings.Repeat("x", maxResponseBytes)+`",`)
		_, _ = io.WriteString(w, `"choices":[{"message":{"content":"late"}}]}`)
	})

	result, err := f.gw.Ask(context.Background(), f.user, "openai", "hello")
	require.NoError(t, err)

	assert.Equal(t, providers.NoAnswer, result.Answer)
	entries := f.logs.FilterMessage("provider response truncated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.EqualValues(t, maxResponseBytes, entries[0].ContextMap()["limit_bytes"])
}

func TestGateway_Ask_EmptyAnswerNotFlaggedAsTruncated(t *testing.T) {
	f := newFixture(t, func(id string, w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})

	result, err := f.gw.Ask(context.Background(), f.user, "openai", "hello")
	require.NoError(t, err)

	assert.Equal(t, providers.NoAnswer, result.Answer)
	assert.Empty(t, f.logs.FilterMessage("provider response truncated").All())
}

func TestGateway_Ask_NoOutboundCall(t *testing.T) {
	f := newFixture(t, func(string, http.ResponseWriter, *http.Request) {})

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := f.gw.Ask(context.Background(), f.user, "nope", "q")
		assert.True(t, services.IsUnsupportedProviderError(err))
	})

	t.Run("missing credential", func(t *testing.T) {
		f.vault.DeleteSecret(f.user, "anthropic")
		_, err := f.gw.Ask(context.Background(), f.user, "anthropic", "q")
		require.True(t, services.IsMissingCredentialError(err))
		assert.Contains(t, services.GetErrorMessage(err), "Claude 3.5 Sonnet")
		assert.Equal(t, "anthropic", services.GetErrorDetails(err)["provider"])
	})

	t.Run("undecryptable credential is reported as missing", func(t *testing.T) {
		f.user.APIKeys["groq"] = "00:ff"
		_, err := f.gw.Ask(context.Background(), f.user, "groq", "q")
		require.True(t, services.IsMissingCredentialError(err))
		assert.NotContains(t, err.Error(), "decrypt")
	})

	assert.Equal(t, int32(0), f.hits.Load())
}

func TestGateway_Ask_ProviderRejected(t *testing.T) {
	f := newFixture(t, func(id string, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"You exceeded your current quota, please check your plan and billing details."}}`)
	})

	_, err := f.gw.Ask(context.Background(), f.user, "openai", "q")
	require.True(t, services.IsProviderRejectedError(err))

	details := services.GetErrorDetails(err)
	assert.Equal(t, "openai", details["provider"])
	assert.Equal(t, "quota_exceeded", details["kind"])
	assert.Equal(t, 429, details["http_status"])
	assert.Equal(t, true, details["quota"])
	assert.Equal(t, "You exceeded your current quota, please check your plan and billing details.", services.GetErrorMessage(err))

	var failure *providers.CallFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, providers.FailureQuotaExceeded, failure.Kind)
}

type failingDoer struct{ err error }

func (d failingDoer) Do(*http.Request) (*http.Response, error) { return nil, d.err }

func TestGateway_Ask_NetworkError(t *testing.T) {
	f := newFixture(t, func(string, http.ResponseWriter, *http.Request) {})
	f.gw.client = failingDoer{err: &url.Error{
		Op:  "Post",
		URL: f.server.URL + "/google?key=key-google",
		Err: errors.New("dial tcp: connection refused"),
	}}

	_, err := f.gw.Ask(context.Background(), f.user, "google", "q")
	require.True(t, services.IsNetworkError(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotContains(t, err.Error(), "key-google")

	for _, e := range f.logs.All() {
		assert.NotContains(t, fmt.Sprint(e.ContextMap()), "key-google")
	}
}

func TestGateway_Ask_ServerClosed(t *testing.T) {
	f := newFixture(t, func(string, http.ResponseWriter, *http.Request) {})
	f.server.Close()

	_, err := f.gw.Ask(context.Background(), f.user, "openai", "q")
	assert.True(t, services.IsNetworkError(err))
}

func TestGateway_AskQuestion(t *testing.T) {
	f := newFixture(t, func(id string, w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, openaiOK)
	})

	t.Run("loads user", func(t *testing.T) {
		f.users.On("GetByID", mock.Anything, f.user.ID).Return(f.user, nil).Once()

		result, err := f.gw.AskQuestion(context.Background(), f.user.ID, "groq", "q")
		require.NoError(t, err)
		assert.Equal(t, "groq", result.Provider)
	})

	t.Run("unknown user", func(t *testing.T) {
		missing := uuid.New()
		f.users.On("GetByID", mock.Anything, missing).Return(nil, fmt.Errorf("user id: %w", repositories.ErrNotFound)).Once()

		_, err := f.gw.AskQuestion(context.Background(), missing, "openai", "q")
		assert.True(t, services.IsNotFoundError(err))
	})

	t.Run("unsupported provider skips the user lookup", func(t *testing.T) {
		_, err := f.gw.AskQuestion(context.Background(), uuid.New(), "nope", "q")
		assert.True(t, services.IsUnsupportedProviderError(err))
	})

	t.Run("invalid questions", func(t *testing.T) {
		for _, q := range []string{"", "   ", strings.Repeat("가", MaxQuestionLength+1)} {
			_, err := f.gw.AskQuestion(context.Background(), f.user.ID, "openai", q)
			assert.True(t, services.IsValidationError(err))
		}
	})

	f.users.AssertExpectations(t)
}

func TestGateway_AskMany(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(3)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	f := newFixture(t, func(id string, w http.ResponseWriter, r *http.Request) {
		arrived.Done()
		select {
		case <-release:
		case <-time.After(5 * time.Second):
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}

		switch id {
		case "anthropic":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
		case "google":
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"from gemini"}]}}]}`)
		default:
			_, _ = io.WriteString(w, openaiOK)
		}
	})
	f.users.On("GetByID", mock.Anything, f.user.ID).Return(f.user, nil).Once()

	outcomes, err := f.gw.AskMany(context.Background(), f.user.ID, []string{"google", "anthropic", "openai"}, "q")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "google", outcomes[0].Provider)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, "from gemini", outcomes[0].Result.Answer)

	assert.Equal(t, "anthropic", outcomes[1].Provider)
	assert.Nil(t, outcomes[1].Result)
	assert.True(t, services.IsProviderRejectedError(outcomes[1].Err))
	assert.Equal(t, "authentication", services.GetErrorDetails(outcomes[1].Err)["kind"])

	assert.Equal(t, "openai", outcomes[2].Provider)
	require.NoError(t, outcomes[2].Err)
	assert.Equal(t, "four", outcomes[2].Result.Answer)

	f.users.AssertExpectations(t)
}

func TestGateway_AskMany_PerProviderErrors(t *testing.T) {
	f := newFixture(t, func(id string, w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, openaiOK)
	})
	f.vault.DeleteSecret(f.user, "groq")
	f.users.On("GetByID", mock.Anything, f.user.ID).Return(f.user, nil).Once()

	outcomes, err := f.gw.AskMany(context.Background(), f.user.ID, []string{"mystery", "groq", "openai"}, "q")
	require.NoError(t, err)

	assert.True(t, services.IsUnsupportedProviderError(outcomes[0].Err))
	assert.True(t, services.IsMissingCredentialError(outcomes[1].Err))
	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, int32(1), f.hits.Load())
}

func TestGateway_AskMany_Validation(t *testing.T) {
	f := newFixture(t, func(string, http.ResponseWriter, *http.Request) {})

	tests := []struct {
		name string
		ids  []string
	}{
		{"none", nil},
		{"too many", []string{"openai", "anthropic", "google", "groq"}},
		{"duplicates", []string{"openai", "openai"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gw.AskMany(context.Background(), f.user.ID, tt.ids, "q")
			assert.True(t, services.IsValidationError(err))
		})
	}

	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGateway_ListProviders(t *testing.T) {
	f := newFixture(t, func(string, http.ResponseWriter, *http.Request) {})

	list := f.gw.ListProviders()

	require.Len(t, list, 4)
	assert.Equal(t, ProviderInfo{ID: "openai", Name: "GPT-4o mini", Model: "gpt-4o-mini"}, list[0])
	assert.Equal(t, "groq", list[3].ID)
	assert.Equal(t, 3, f.gw.MaxFanOut())
}
