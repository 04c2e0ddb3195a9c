package handlers

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/agent"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
)

// sessionIDKey is the cookie value holding the conversation id.
const sessionIDKey = "sid"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the body of POST /api/chat. SuggestedConfig, when set, is
// what the UI offers to apply to its form.
type ChatResponse struct {
	*agent.Reply
	LLMEnabled bool `json:"llm_enabled"`
}

// MemoryResponse is the body of GET /api/memory.
type MemoryResponse struct {
	memory.Record
	Summary string `json:"summary"`
}

// ChatHandlerConfig holds the dependencies of a ChatHandler.
type ChatHandlerConfig struct {
	Sessions   *agent.SessionManager
	Memory     *memory.Store
	CookieName string
	// Secret signs the session cookie. Empty generates a per-process key,
	// which logs every browser out on restart.
	Secret []byte
	MaxAge time.Duration
	Secure bool
}

// ChatHandler routes chat messages to the conversation of the caller's
// session cookie.
type ChatHandler struct {
	sessions   *agent.SessionManager
	memory     *memory.Store
	store      *sessions.CookieStore
	cookieName string
	logger     *zap.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(cfg ChatHandlerConfig, logger *zap.Logger) (*ChatHandler, error) {
	secret := cfg.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		logger.Info("SESSION_SECRET not set, chat sessions will not survive a restart")
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = agent.DefaultSessionIdleTimeout
	}

	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &ChatHandler{
		sessions:   cfg.Sessions,
		memory:     cfg.Memory,
		store:      store,
		cookieName: cfg.CookieName,
		logger:     logger,
	}, nil
}

// RegisterRoutes registers the chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.HandleFunc("POST /api/chat/clear", h.Clear)
	mux.HandleFunc("GET /api/memory", h.Memory)
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	orchestrator, ok := h.orchestrator(w, r)
	if !ok {
		return
	}

	reply, err := orchestrator.ProcessMessage(r.Context(), req.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, ChatResponse{Reply: reply, LLMEnabled: orchestrator.LLMEnabled()})
}

// Clear handles POST /api/chat/clear. Memory is kept.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	orchestrator, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	orchestrator.ClearHistory()
	writeData(w, h.logger, map[string]bool{"cleared": true})
}

// Memory handles GET /api/memory.
func (h *ChatHandler) Memory(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.logger, MemoryResponse{Record: h.memory.Snapshot(), Summary: h.memory.ContextSummary()})
}

// orchestrator returns the conversation bound to the request's cookie,
// starting one (and setting the cookie) when needed.
func (h *ChatHandler) orchestrator(w http.ResponseWriter, r *http.Request) (*agent.Orchestrator, bool) {
	// A cookie signed with another key decodes to a fresh session plus an
	// error; the fresh session is what we want.
	session, err := h.store.Get(r, h.cookieName)
	if session == nil {
		// Only an invalid cookie name gets here
		writeError(w, h.logger, err)
		return nil, false
	}
	if err != nil {
		h.logger.Debug("Discarding unreadable session cookie", zap.Error(err))
	}

	current, _ := session.Values[sessionIDKey].(string)
	id, orchestrator := h.sessions.Get(current)
	if id != current {
		session.Values[sessionIDKey] = id
		if err := session.Save(r, w); err != nil {
			h.logger.Error("Failed to save session cookie", zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to start chat session"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
	}
	return orchestrator, true
}
