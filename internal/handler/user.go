package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/service"
	"github.com/sakif/recipe-api/internal/validation"
)

// UserHandler serves account registration, token issuance and the caller's
// own profile.
//
//	POST  /user/create → register, 201 {email, name}
//	POST  /user/token  → exchange credentials for a token, 200 {token} or 400
//	GET   /user/me     → caller's profile
//	PATCH /user/me     → update any of email, name, password
//	PUT   /user/me     → full update; email and password required
type UserHandler struct {
	users    *service.UserService
	validate *validation.Validator
	logger   *slog.Logger
}

func NewUserHandler(users *service.UserService, validate *validation.Validator, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, validate: validate, logger: logger}
}

// UserResponse is the public view of an account. The password hash and the
// internal flags never leave the server.
type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{Email: u.Email, Name: u.Name}
}

type createUserRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"     validate:"max=255"`
}

type tokenRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a freshly issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// updateMeRequest uses pointers so a PATCH can tell "absent" from "empty".
type updateMeRequest struct {
	Email    *string `json:"email"    validate:"omitempty,email,max=255"`
	Name     *string `json:"name"     validate:"omitempty,max=255"`
	Password *string `json:"password"`
}

// HandleCreate registers a new user.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// HandleToken issues a token for valid credentials. Bad credentials are a
// 400, not a 401: the client sent a malformed login, not an unauthenticated
// request.
func (h *UserHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.users.IssueToken(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// HandleGetMe returns the caller's profile.
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// HandlePatchMe updates only the supplied profile fields.
func (h *UserHandler) HandlePatchMe(w http.ResponseWriter, r *http.Request) {
	h.updateMe(w, r, false)
}

// HandlePutMe replaces the profile. Email and password must be present; an
// absent name is left unchanged.
func (h *UserHandler) HandlePutMe(w http.ResponseWriter, r *http.Request) {
	h.updateMe(w, r, true)
}

func (h *UserHandler) updateMe(w http.ResponseWriter, r *http.Request, full bool) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if full {
		if err := h.validate.Validate(fullMeRequest(req)); err != nil {
			writeError(w, err)
			return
		}
	} else if err := h.validate.Validate(req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// putMeRequest holds the required-field rules of a full profile update.
type putMeRequest struct {
	Email    *string `json:"email"    validate:"required,email,max=255"`
	Name     *string `json:"name"     validate:"omitempty,max=255"`
	Password *string `json:"password" validate:"required"`
}

func fullMeRequest(req updateMeRequest) putMeRequest {
	return putMeRequest(req)
}
