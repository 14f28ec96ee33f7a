package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/carlvyper/rental-portal/internal/services"
)

type AuthHandler struct {
	users *services.UserService
	auth  *Auth
}

func NewAuthHandler(users *services.UserService, auth *Auth) *AuthHandler {
	return &AuthHandler{users: users, auth: auth}
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		log.Printf("Failed to register user: %v", err)
		http.Error(w, `{"error":"Failed to register"}`, http.StatusInternalServerError)
		return
	}

	token, err := h.auth.IssueToken(user.ID.Hex(), user.Username)
	if err != nil {
		log.Printf("Failed to issue token for user %s: %v", user.Username, err)
		http.Error(w, `{"error":"Failed to issue token"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"username": user.Username,
		"token":    token,
	})
}

// Login handles POST /api/login. The username field accepts either the
// account's email or username.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	user, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		log.Printf("Login failed: %v", err)
		http.Error(w, `{"error":"Login failed"}`, http.StatusInternalServerError)
		return
	}

	token, err := h.auth.IssueToken(user.ID.Hex(), user.Username)
	if err != nil {
		log.Printf("Failed to issue token for user %s: %v", user.Username, err)
		http.Error(w, `{"error":"Failed to issue token"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"username": user.Username,
		"token":    token,
	})
}

// ChangePassword handles POST /api/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	err := h.users.ChangePassword(r.Context(), p.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			http.Error(w, `{"error":"Current password is incorrect"}`, http.StatusUnauthorized)
		case errors.Is(err, services.ErrValidation):
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		default:
			log.Printf("Failed to change password for user %s: %v", p.UserID, err)
			http.Error(w, `{"error":"Failed to change password"}`, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
