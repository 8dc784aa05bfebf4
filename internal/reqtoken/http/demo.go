package http

import (
	"net/http"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/reqtokensdk"
)

const (
	ScopeWhoAmI  = "whoami"
	ScopeConsume = "consume"
)

// HandleWhoAmI godoc
//
//	@Summary		Who Am I
//	@Description	Returns the effective caller identity. A token issued for scope "whoami" is optional; REQUEST and SESSION mode tokens log their user in.
//	@Tags			Demo
//	@Produce		json
//	@Param			rt	query		string	false	"Request token"
//	@Success		200	{object}	reqtokensdk.WhoAmIResponse	"Effective identity and token data"
//	@Failure		403	{string}	string						"Invalid URL token"
//	@Router			/v1/whoami [get].
func HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := reqtokensdk.WhoAmIResponse{UserID: httpx.IdentityFromContext(ctx).UserID}
	if tok, ok := TokenFromContext(ctx); ok {
		resp.TokenID = tok.ID
		resp.Data = tok.Data
	}
	if err := TokenErrorFromContext(ctx); err != nil {
		resp.TokenError = domain.Classify(err)
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleConsume godoc
//
//	@Summary		Consume Token
//	@Description	Requires a valid token issued for scope "consume" and returns its data. Each successful call counts as one use.
//	@Tags			Demo
//	@Accept			json
//	@Produce		json
//	@Param			rt	query		string	false	"Request token, may also be sent in a JSON or form body"
//	@Success		200	{object}	reqtokensdk.ConsumeResponse	"Token data"
//	@Failure		403	{string}	string						"Invalid URL token"
//	@Router			/v1/consume [get]
//	@Router			/v1/consume [post].
func HandleConsume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Require guarantees a token here.
	tok, _ := TokenFromContext(ctx)

	remaining := tok.Remaining()
	// Counted after the response unless the use was already claimed.
	if st := stateFrom(ctx); st != nil && !st.claimed && remaining > 0 {
		remaining--
	}

	httpx.WriteJSON(w, http.StatusOK, reqtokensdk.ConsumeResponse{
		TokenID:       tok.ID,
		UserID:        httpx.IdentityFromContext(ctx).UserID,
		RemainingUses: remaining,
		Data:          tok.Data,
	})
}
