package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/utils"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := decodeJSON(req, &loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ident := strings.ToLower(strings.TrimSpace(loginReq.Email))

	// 1. Find User (by email or username)
	var user models.UserAuth
	if err := r.db.WithContext(req.Context()).
		Where("(LOWER(email) = ? OR LOWER(username) = ?) AND is_active = ?", ident, ident, true).
		First(&user).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 2. Check Password
	if !utils.CheckPasswordHash(loginReq.Password, user.Password) {
		r.log.Warn("login rejected", "email", ident)
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 3. Update Last Login
	now := time.Now()
	if err := r.db.WithContext(req.Context()).Model(&user).Update("last_login", now).Error; err != nil {
		r.log.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}
	user.LastLogin = &now

	// 4. Generate Tokens
	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}
