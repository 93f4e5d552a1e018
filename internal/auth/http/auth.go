package http

import (
	"net/http"
	"strings"

	"github.com/pallidlabs/authgate/internal/auth/domain"
	"github.com/pallidlabs/authgate/internal/auth/service"
	"github.com/pallidlabs/authgate/pkg/httpx"
)

// AuthHandler serves the credential flows under /api/v1/auth.
type AuthHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authorizeRequest struct {
	Username         string `json:"username"`
	Role             string `json:"role"`
	AuthorizationKey string `json:"authorization_key"`
}

// HandleRegister godoc
//
//	@Summary		Register a new user
//	@Description	Creates a user with the default role and returns a fresh token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"Registration details"
//	@Success		201		{object}	httpx.Envelope{data=domain.TokenPair}
//	@Failure		400		{object}	httpx.Envelope	"Malformed body or missing fields"
//	@Failure		409		{object}	httpx.Envelope	"Username or email already in use"
//	@Router			/api/v1/auth/register [post]
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	pair, err := h.AuthService.Register(r.Context(), req.Username, req.Email, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, pair, "User registered successfully")
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Verifies credentials, revokes any prior session, and returns a new token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	httpx.Envelope{data=domain.TokenPair}
//	@Failure		401		{object}	httpx.Envelope	"Invalid credentials"
//	@Router			/api/v1/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.AuthService.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair, "Login successful")
}

// HandleRefresh godoc
//
//	@Summary		Refresh the access token
//	@Description	Trades a bearer refresh token for a new access token. The refresh
//	@Description	token itself is returned unchanged. A missing Authorization header
//	@Description	is a no-op.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope{data=domain.TokenPair}
//	@Failure		401	{object}	httpx.Envelope	"Expired or invalid refresh token"
//	@Failure		404	{object}	httpx.Envelope	"Subject no longer exists"
//	@Router			/api/v1/auth/refresh-token [post]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := httpx.BearerToken(r)
	if raw == "" {
		// No token presented: nothing to refresh, nothing to fail.
		httpx.WriteJSON(w, http.StatusOK, nil, "No token provided")
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), raw)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair, "Token refreshed successfully")
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented bearer token. Idempotent; a missing header
//	@Description	or an unknown token still reports success.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope
//	@Router			/api/v1/auth/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	raw := httpx.BearerToken(r)
	if raw == "" {
		httpx.WriteJSON(w, http.StatusOK, nil, "No token provided")
		return
	}

	if err := h.AuthService.Logout(r.Context(), raw); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, nil, "Logged out successfully")
}

// HandleAuthorize godoc
//
//	@Summary		Change a user's role
//	@Description	Elevates (or demotes) a user's role given the shared authorization
//	@Description	key, then issues a fresh token pair carrying the new role.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authorizeRequest	true	"Target user, role and authorization key"
//	@Success		200		{object}	httpx.Envelope{data=domain.TokenPair}
//	@Failure		400		{object}	httpx.Envelope	"Unknown role"
//	@Failure		403		{object}	httpx.Envelope	"Authorization key rejected"
//	@Failure		404		{object}	httpx.Envelope	"User not found"
//	@Router			/api/v1/auth/authorize [post]
func (h *AuthHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Unknown role")
		return
	}

	pair, err := h.AuthService.Authorize(r.Context(), strings.TrimSpace(req.Username), role, req.AuthorizationKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair, "Role updated successfully")
}
