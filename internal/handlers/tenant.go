package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carlvyper/rental-portal/internal/models"
	"github.com/carlvyper/rental-portal/internal/services"
)

type TenantHandler struct {
	tenant *services.TenantService
}

func NewTenantHandler(tenant *services.TenantService) *TenantHandler {
	return &TenantHandler{tenant: tenant}
}

// CreateComplaint handles POST /api/complaints
func (h *TenantHandler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var complaint models.Complaint
	if err := json.NewDecoder(r.Body).Decode(&complaint); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	created, err := h.tenant.CreateComplaint(r.Context(), p.UserID, &complaint)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		log.Printf("Failed to create complaint: %v", err)
		http.Error(w, `{"error":"Failed to create complaint"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// ListComplaints handles GET /api/complaints
func (h *TenantHandler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	complaints, err := h.tenant.ListComplaints(r.Context(), p.UserID)
	if err != nil {
		log.Printf("Failed to fetch complaints for user %s: %v", p.UserID, err)
		http.Error(w, `{"error":"Failed to fetch complaints"}`, http.StatusInternalServerError)
		return
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(complaints)
}

// CreateRequest handles POST /api/requests
func (h *TenantHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var request models.MaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	created, err := h.tenant.CreateRequest(r.Context(), p.UserID, &request)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		log.Printf("Failed to create maintenance request: %v", err)
		http.Error(w, `{"error":"Failed to create request"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// ListRequests handles GET /api/requests
func (h *TenantHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	requests, err := h.tenant.ListRequests(r.Context(), p.UserID)
	if err != nil {
		log.Printf("Failed to fetch requests for user %s: %v", p.UserID, err)
		http.Error(w, `{"error":"Failed to fetch requests"}`, http.StatusInternalServerError)
		return
	}
	if requests == nil {
		requests = []models.MaintenanceRequest{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requests)
}

// ListNotifications handles GET /api/notifications
func (h *TenantHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	notifications, err := h.tenant.ListNotifications(r.Context(), p.UserID)
	if err != nil {
		log.Printf("Failed to fetch notifications for user %s: %v", p.UserID, err)
		http.Error(w, `{"error":"Failed to fetch notifications"}`, http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notifications)
}

// MarkNotificationRead handles PATCH /api/notifications/{notificationID}/read
func (h *TenantHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id := mux.Vars(r)["notificationID"]

	if err := h.tenant.MarkNotificationRead(r.Context(), p.UserID, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, `{"error":"Notification not found"}`, http.StatusNotFound)
			return
		}
		log.Printf("Failed to mark notification %s read: %v", id, err)
		http.Error(w, `{"error":"Failed to update notification"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
