package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/carlvyper/rental-portal/internal/services"
)

type ProfileHandler struct {
	users  *services.UserService
	tenant *services.TenantService
}

func NewProfileHandler(users *services.UserService, tenant *services.TenantService) *ProfileHandler {
	return &ProfileHandler{users: users, tenant: tenant}
}

// GetProfile handles GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	user, err := h.users.GetUser(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, `{"error":"User not found"}`, http.StatusNotFound)
			return
		}
		log.Printf("Failed to fetch profile for user %s: %v", p.UserID, err)
		http.Error(w, `{"error":"Failed to fetch profile"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// UpdateProfile handles PATCH /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var update services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), p.UserID, update)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, `{"error":"User not found"}`, http.StatusNotFound)
			return
		}
		log.Printf("Failed to update profile for user %s: %v", p.UserID, err)
		http.Error(w, `{"error":"Failed to update profile"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Profile updated successfully",
		"profile": user,
	})
}

// DashboardCounts handles GET /api/dashboard-counts
func (h *ProfileHandler) DashboardCounts(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	counts, err := h.tenant.DashboardCounts(r.Context(), p.UserID, p.Username)
	if err != nil {
		log.Printf("Failed to fetch dashboard counts for user %s: %v", p.UserID, err)
		http.Error(w, `{"error":"Failed to fetch counts"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(counts)
}
