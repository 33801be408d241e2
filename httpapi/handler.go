package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/acadbot/chatauth"
)

const maxBodyBytes = 1 << 16

// PasswordAuthenticator verifies a password credential against the
// record store. Implementations return (false, nil) on a definitive
// rejection and an error only when the check could not run.
type PasswordAuthenticator interface {
	VerifyPassword(ctx context.Context, email, password string) (bool, error)
}

// Handler serves the authentication endpoints.
type Handler struct {
	engine    *chatauth.Engine
	passwords PasswordAuthenticator
}

// NewHandler creates a [Handler]. passwords may be nil, in which case
// the password login endpoint answers 503.
func NewHandler(engine *chatauth.Engine, passwords PasswordAuthenticator) *Handler {
	return &Handler{
		engine:    engine,
		passwords: passwords,
	}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/chatbot-login", h.handleChatbotLogin).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatbotLoginRequest struct {
	Email     string `json:"email"`
	Answer    string `json:"answer"`
	Kind      string `json:"challenge_kind"`
	Parameter int    `json:"challenge_parameter,omitempty"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token,omitempty"`
	User    *userPayload `json:"user,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if h.passwords == nil {
		writeJSON(w, http.StatusServiceUnavailable, authResponse{
			Success: false,
			Message: chatauth.UserMessage(chatauth.ErrLookupUnavailable),
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	ctx := requestContext(r)

	valid, err := h.passwords.VerifyPassword(ctx, email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, authResponse{
			Success: false,
			Message: chatauth.UserMessage(chatauth.ErrLookupUnavailable),
		})
		return
	}
	if !valid {
		writeJSON(w, http.StatusOK, authResponse{
			Success: false,
			Message: "Invalid e-mail or password.",
		})
		return
	}

	result, err := h.issueForEmail(ctx, email)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) handleChatbotLogin(w http.ResponseWriter, r *http.Request) {
	var req chatbotLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := requestContext(r)

	result, err := h.engine.AuthenticateWithAnswer(
		ctx,
		req.Email,
		req.Answer,
		chatauth.ChallengeKind(req.Kind),
		req.Parameter,
	)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// issueForEmail resolves the identity and signs a password-grade token
// (challenge flag off). Password logins skip the challenge matcher.
func (h *Handler) issueForEmail(ctx context.Context, email string) (*chatauth.AuthResult, error) {
	return h.engine.AuthenticateVerified(ctx, email)
}

// writeFlowError maps engine errors to transport responses. User-class
// failures stay HTTP 200 with success=false so conversational clients
// can relay the message verbatim; infrastructure failures get real
// error statuses.
func (h *Handler) writeFlowError(w http.ResponseWriter, err error) {
	resp := authResponse{
		Success: false,
		Message: chatauth.UserMessage(err),
	}

	switch {
	case errors.Is(err, chatauth.ErrLookupRateLimited):
		writeJSON(w, http.StatusTooManyRequests, resp)
	case errors.Is(err, chatauth.ErrLookupUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, resp)
	case errors.Is(err, chatauth.ErrTokenSigningFailed), errors.Is(err, chatauth.ErrEngineNotReady):
		writeJSON(w, http.StatusInternalServerError, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeSuccess(w http.ResponseWriter, result *chatauth.AuthResult) {
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Token:   result.Token,
		User: &userPayload{
			ID:    result.UserID,
			Email: result.Email,
			Name:  result.Name,
			Role:  result.Role,
		},
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{
			Success: false,
			Message: "Malformed request body.",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// requestContext tags the context with the client IP so throttling and
// audit see it.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()

	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}

	if ip != "" {
		ctx = chatauth.WithClientIP(ctx, ip)
	}

	return chatauth.WithChannel(ctx, "http")
}
