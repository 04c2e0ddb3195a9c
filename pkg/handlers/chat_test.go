package handlers

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/agent"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
)

type chatFixture struct {
	mux      *http.ServeMux
	sessions *agent.SessionManager
	memory   *memory.Store
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	mem := memory.Open(filepath.Join(t.TempDir(), "memory.json"), zap.NewNop())
	schema := newMockSchemaService()
	sessions := agent.NewSessionManager(func() *agent.Orchestrator {
		return agent.NewOrchestrator(agent.Config{Schema: schema, Memory: mem, Logger: zap.NewNop()})
	}, 0)

	handler, err := NewChatHandler(ChatHandlerConfig{
		Sessions:   sessions,
		Memory:     mem,
		CookieName: "milkyway_session",
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
	}, zap.NewNop())
	require.NoError(t, err)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return &chatFixture{mux: mux, sessions: sessions, memory: mem}
}

func (f *chatFixture) post(path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestChatHandler_BasicModeReply(t *testing.T) {
	f := newChatFixture(t)

	rec := f.post("/api/chat", `{"message":"help"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		Text       string `json:"text"`
		Degraded   bool   `json:"degraded"`
		LLMEnabled bool   `json:"llm_enabled"`
	}
	resp := apiResult(t, rec, &data)
	assert.True(t, resp.Success)
	assert.Contains(t, data.Text, "basic mode")
	assert.True(t, data.Degraded)
	assert.False(t, data.LLMEnabled)
	assert.NotEmpty(t, rec.Result().Cookies(), "a session cookie is set")
}

func TestChatHandler_SuggestedConfig(t *testing.T) {
	f := newChatFixture(t)

	rec := f.post("/api/chat", `{"message":"Run growth accounting on sessions.user_activity weekly"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		SuggestedConfig *agent.SuggestedConfig `json:"suggested_config"`
	}
	apiResult(t, rec, &data)
	require.NotNil(t, data.SuggestedConfig)
	assert.Equal(t, "sessions.user_activity", data.SuggestedConfig.Variables["activity_table"])
	assert.Equal(t, "WEEK", data.SuggestedConfig.Variables["time_grain"])
}

func TestChatHandler_CookieKeepsConversation(t *testing.T) {
	f := newChatFixture(t)

	first := f.post("/api/chat", `{"message":"help"}`)
	require.Equal(t, http.StatusOK, first.Code)
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	second := f.post("/api/chat", `{"message":"help"}`, cookies...)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, f.sessions.Len(), "the cookie maps to the same session")

	f.post("/api/chat", `{"message":"help"}`)
	assert.Equal(t, 2, f.sessions.Len(), "no cookie starts a new session")
}

func TestChatHandler_ForeignCookieStartsFreshSession(t *testing.T) {
	f := newChatFixture(t)

	rec := f.post("/api/chat", `{"message":"help"}`, &http.Cookie{Name: "milkyway_session", Value: "tampered"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.sessions.Len())
}

func TestChatHandler_EmptyMessage(t *testing.T) {
	f := newChatFixture(t)

	rec := f.post("/api/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", apiResult(t, rec, nil).Error)
}

func TestChatHandler_Clear(t *testing.T) {
	f := newChatFixture(t)

	first := f.post("/api/chat", `{"message":"help"}`)
	cookies := first.Result().Cookies()

	rec := f.post("/api/chat/clear", ``, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]bool
	apiResult(t, rec, &data)
	assert.True(t, data["cleared"])
	assert.Equal(t, 1, f.sessions.Len())
}

func TestChatHandler_Memory(t *testing.T) {
	f := newChatFixture(t)
	require.NoError(t, f.memory.AddPreference("default_time_grain", "WEEK"))
	require.NoError(t, f.memory.AddRecentTable("sessions.user_activity"))

	rec := serve(f.mux, http.MethodGet, "/api/memory", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data MemoryResponse
	apiResult(t, rec, &data)
	assert.Equal(t, "WEEK", data.Preferences["default_time_grain"])
	assert.Equal(t, []string{"sessions.user_activity"}, data.RecentTables)
	assert.Contains(t, data.Summary, "sessions.user_activity")
}

func TestNewChatHandler_GeneratesSecret(t *testing.T) {
	mem := memory.Open(filepath.Join(t.TempDir(), "memory.json"), zap.NewNop())
	handler, err := NewChatHandler(ChatHandlerConfig{
		Sessions:   agent.NewSessionManager(func() *agent.Orchestrator { return nil }, 0),
		Memory:     mem,
		CookieName: "s",
	}, zap.NewNop())

	require.NoError(t, err)
	assert.NotNil(t, handler.store)
	assert.Equal(t, int(agent.DefaultSessionIdleTimeout.Seconds()), handler.store.Options.MaxAge)
}
