package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/avelez/duet/internal/auth"
	"github.com/avelez/duet/internal/httpx"
	"github.com/avelez/duet/internal/middleware"
	"github.com/avelez/duet/internal/models"
	"github.com/avelez/duet/internal/store"
	"github.com/avelez/duet/internal/upload"
)

type AuthHandler struct {
	Store    store.Store
	Tokens   *auth.Tokens
	Uploader upload.Saver
	Logger   zerolog.Logger
}

type SignupRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, httpx.ErrValidation, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		httpx.Error(w, httpx.ErrValidation, "Username and email are required")
		return
	}
	if len(req.Password) < 6 {
		httpx.Error(w, httpx.ErrValidation, "Password must be at least 6 characters")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.Error(w, err, "Internal server error")
		return
	}

	user := &models.User{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := h.Store.CreateUser(user); err != nil {
		httpx.JSON(w, http.StatusConflict, map[string]string{"message": "Email already in use"})
		return
	}

	h.setSessionCookie(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, httpx.ErrValidation, "Invalid request body")
		return
	}

	user, err := h.Store.GetUserByEmail(req.Email)
	if err != nil {
		httpx.Error(w, httpx.ErrUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httpx.Error(w, httpx.ErrUnauthorized, "Invalid credentials")
		return
	}

	h.setSessionCookie(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Check returns the authenticated user, for session restoration on page load.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	user, err := h.Store.GetUserByID(userID)
	if err != nil {
		httpx.Error(w, httpx.ErrUnauthorized, "Unauthorized")
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	ProfilePic string `json:"profile_pic"`
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, httpx.ErrValidation, "Invalid request body")
		return
	}
	if req.ProfilePic == "" {
		httpx.Error(w, httpx.ErrValidation, "Profile picture is required")
		return
	}

	url, err := h.Uploader.Save(req.ProfilePic)
	if err != nil {
		if errors.Is(err, upload.ErrNotImage) {
			httpx.Error(w, httpx.ErrValidation, "Invalid image")
		} else {
			h.Logger.Error().Err(err).Msg("profile picture upload failed")
			httpx.Error(w, httpx.ErrUpstream, "Image upload failed")
		}
		return
	}

	if err := h.Store.UpdateProfilePic(userID, url); err != nil {
		h.Logger.Error().Err(err).Msg("profile picture update failed")
		httpx.Error(w, err, "Internal server error")
		return
	}

	user, err := h.Store.GetUserByID(userID)
	if err != nil {
		httpx.Error(w, err, "Internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, userID int) {
	token, err := h.Tokens.Generate(userID)
	if err != nil {
		h.Logger.Error().Err(err).Msg("token generation failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Tokens.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
