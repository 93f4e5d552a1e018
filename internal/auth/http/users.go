package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/pallidlabs/authgate/internal/auth/domain"
	"github.com/pallidlabs/authgate/internal/auth/service"
	"github.com/pallidlabs/authgate/pkg/httpx"
)

// UsersHandler serves the user resource under /api/v1/users.
type UsersHandler struct {
	UserService *service.UserService
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HandleMe godoc
//
//	@Summary		Get own profile
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope{data=userResponse}
//	@Failure		401	{object}	httpx.Envelope	"Not authenticated"
//	@Router			/api/v1/users/me [get]
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := httpx.PrincipalFromContext(r.Context())

	u, err := h.UserService.GetProfile(r.Context(), p.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u), "")
}

// HandleUpdateMe godoc
//
//	@Summary		Update own profile
//	@Description	Changes the caller's display name and email.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		updateProfileRequest	true	"New profile values"
//	@Success		200		{object}	httpx.Envelope{data=userResponse}
//	@Failure		401		{object}	httpx.Envelope	"Not authenticated"
//	@Failure		409		{object}	httpx.Envelope	"Email already in use"
//	@Router			/api/v1/users/me [put]
func (h *UsersHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	p, _ := httpx.PrincipalFromContext(r.Context())

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email is required")
		return
	}

	u, err := h.UserService.UpdateProfile(r.Context(), p.Subject, req.Name, req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u), "Profile updated successfully")
}

// HandleList godoc
//
//	@Summary		List all users
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope{data=[]userResponse}
//	@Failure		403	{object}	httpx.Envelope	"Admin role required"
//	@Router			/api/v1/users [get]
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}

	httpx.WriteJSON(w, http.StatusOK, out, "")
}

// HandleDelete godoc
//
//	@Summary		Delete a user
//	@Description	Removes the user and, via cascade, every ledger row they own.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			username	path		string	true	"Username to delete"
//	@Success		200			{object}	httpx.Envelope
//	@Failure		403			{object}	httpx.Envelope	"Admin role required"
//	@Failure		404			{object}	httpx.Envelope	"User not found"
//	@Router			/api/v1/users/{username} [delete]
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		httpx.WriteError(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := h.UserService.DeleteUser(r.Context(), username); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, nil, "User deleted successfully")
}
