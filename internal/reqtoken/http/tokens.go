package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/service"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/reqtokensdk"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
)

// TokensHandler serves the admin API for issuing and inspecting tokens.
type TokensHandler struct {
	TokenService *service.TokenService
	Store        store.Store
	Now          func() time.Time
}

func (h *TokensHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleCreate godoc
//
//	@Summary		Issue Request Token
//	@Description	Creates a request token for a scope and returns it signed. If url is given, the token is added to it as a query argument.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Authorization	header		string							true	"Bearer admin token"
//	@Param			request			body		reqtokensdk.CreateTokenRequest	true	"Token definition"
//	@Success		201				{object}	reqtokensdk.CreateTokenResponse	"id, token, claims, url"
//	@Failure		400				{object}	reqtokensdk.ErrorResponse		"error, error_description"
//	@Failure		401				{object}	reqtokensdk.ErrorResponse		"error, error_description"
//	@Failure		500				{object}	reqtokensdk.ErrorResponse		"error, error_description"
//	@Router			/v1/tokens [post].
func (h *TokensHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reqtokensdk.CreateTokenRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		reqtokensdk.NewAPIError(http.StatusBadRequest, reqtokensdk.ErrorCodeInvalidRequest, "invalid JSON body").WriteError(w)
		return
	}

	params := service.CreateParams{
		Scope:     req.Scope,
		UserID:    req.UserID,
		NotBefore: req.NotBefore,
		ExpiresAt: req.ExpiresAt,
		MaxUses:   req.MaxUses,
		Data:      req.Data,
		Stash:     req.Stash,
	}
	if req.LoginMode != "" {
		mode, err := domain.ParseLoginMode(req.LoginMode)
		if err != nil {
			reqtokensdk.NewAPIError(http.StatusBadRequest, reqtokensdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
			return
		}
		params.LoginMode = mode
	}

	tok, err := h.TokenService.Create(ctx, params)
	if err != nil {
		writeCreateError(w, err)
		return
	}

	raw, err := h.TokenService.Encode(tok)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to encode request token", slog.String("token_id", tok.ID), slog.Any("error", err))
		reqtokensdk.ErrServerError.WriteError(w)
		return
	}

	claims, err := json.Marshal(tok.Claims())
	if err != nil {
		reqtokensdk.ErrServerError.WriteError(w)
		return
	}

	resp := reqtokensdk.CreateTokenResponse{ID: tok.ID, Token: raw, Claims: claims}
	if req.URL != "" {
		resp.URL, err = h.TokenService.Tokenise(tok, req.URL)
		if err != nil {
			// The token exists already, a bad url only loses the convenience link.
			slogx.FromContext(ctx).Warn("failed to tokenise url", slog.String("token_id", tok.ID), slog.Any("error", err))
		}
	}

	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidLoginMode),
		errors.Is(err, domain.ErrScopeRequired),
		errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrInvalidMaxUses),
		errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, service.ErrInvalidData):
		reqtokensdk.NewAPIError(http.StatusBadRequest, reqtokensdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
	default:
		reqtokensdk.ErrServerError.WriteError(w)
	}
}

// HandleGet godoc
//
//	@Summary		Get Request Token
//	@Description	Returns the stored state of a token, including its usage counters.
//	@Tags			Tokens
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Authorization	header		string					true	"Bearer admin token"
//	@Param			id				path		string					true	"Token ID (ULID)"
//	@Success		200				{object}	reqtokensdk.TokenState	"Token state"
//	@Failure		401				{object}	reqtokensdk.ErrorResponse
//	@Failure		404				{object}	reqtokensdk.ErrorResponse
//	@Failure		500				{object}	reqtokensdk.ErrorResponse
//	@Router			/v1/tokens/{id} [get].
func (h *TokensHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeState(w, r, tok)
}

// HandleExpire godoc
//
//	@Summary		Expire Request Token
//	@Description	Ends the validity of a token immediately. Its usage history is kept.
//	@Tags			Tokens
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Authorization	header		string					true	"Bearer admin token"
//	@Param			id				path		string					true	"Token ID (ULID)"
//	@Success		200				{object}	reqtokensdk.TokenState	"Token state after expiry"
//	@Failure		401				{object}	reqtokensdk.ErrorResponse
//	@Failure		404				{object}	reqtokensdk.ErrorResponse
//	@Failure		500				{object}	reqtokensdk.ErrorResponse
//	@Router			/v1/tokens/{id}/expire [post].
func (h *TokensHandler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.lookup(w, r)
	if !ok {
		return
	}

	tok, err := h.TokenService.Expire(r.Context(), tok)
	if errors.Is(err, domain.ErrTokenNotFound) {
		reqtokensdk.ErrNotFound.WriteError(w)
		return
	}
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to expire request token", slog.Any("error", err))
		reqtokensdk.ErrServerError.WriteError(w)
		return
	}

	h.writeState(w, r, tok)
}

// HandleLogs godoc
//
//	@Summary		List Token Usage
//	@Description	Returns every recorded attempt to use a token, oldest first, with error classifications for failed attempts.
//	@Tags			Tokens
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Authorization	header		string								true	"Bearer admin token"
//	@Param			id				path		string								true	"Token ID (ULID)"
//	@Success		200				{object}	reqtokensdk.ListUsageLogsResponse	"Usage logs"
//	@Failure		401				{object}	reqtokensdk.ErrorResponse
//	@Failure		404				{object}	reqtokensdk.ErrorResponse
//	@Failure		500				{object}	reqtokensdk.ErrorResponse
//	@Router			/v1/tokens/{id}/logs [get].
func (h *TokensHandler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.lookup(w, r)
	if !ok {
		return
	}

	logs, err := h.Store.UsageLogs().ListUsageLogs(r.Context(), tok.ID)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list usage logs", slog.Any("error", err))
		reqtokensdk.ErrServerError.WriteError(w)
		return
	}

	resp := reqtokensdk.ListUsageLogsResponse{Logs: make([]reqtokensdk.UsageLogEntry, 0, len(logs))}
	for _, l := range logs {
		entry := reqtokensdk.UsageLogEntry{
			ID:         l.ID,
			UserID:     l.UserID,
			ClientIP:   l.ClientIP,
			UserAgent:  l.UserAgent,
			StatusCode: l.StatusCode,
			Timestamp:  l.Timestamp,
		}
		if l.Error != nil {
			entry.Error = &reqtokensdk.UsageLogError{
				Classification: l.Error.Classification,
				Message:        l.Error.Message,
			}
		}
		resp.Logs = append(resp.Logs, entry)
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *TokensHandler) lookup(w http.ResponseWriter, r *http.Request) (domain.Token, bool) {
	tok, err := h.TokenService.Lookup(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrTokenNotFound) {
		reqtokensdk.ErrNotFound.WriteError(w)
		return domain.Token{}, false
	}
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to look up request token", slog.Any("error", err))
		reqtokensdk.ErrServerError.WriteError(w)
		return domain.Token{}, false
	}
	return tok, true
}

func (h *TokensHandler) writeState(w http.ResponseWriter, r *http.Request, tok domain.Token) {
	successful, err := h.Store.UsageLogs().CountSuccessfulUses(r.Context(), tok.ID)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to count token uses", slog.Any("error", err))
		reqtokensdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, reqtokensdk.TokenState{
		ID:              tok.ID,
		Scope:           tok.Scope,
		UserID:          tok.UserID,
		LoginMode:       string(tok.LoginMode),
		NotBefore:       tok.NotBefore,
		ExpiresAt:       tok.ExpiresAt,
		IssuedAt:        tok.IssuedAt,
		MaxUses:         tok.MaxUses,
		UsedToDate:      tok.UsedToDate,
		SuccessfulUses:  successful,
		RemainingUses:   tok.Remaining(),
		Data:            tok.Data,
		Stash:           tok.Stash,
		CurrentlyActive: tok.CheckWindow(h.now()) == nil && tok.CheckUsage() == nil,
	})
}
