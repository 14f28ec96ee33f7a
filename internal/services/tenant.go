package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carlvyper/rental-portal/internal/models"
)

// TenantService owns the plain CRUD records a tenant submits and reads:
// complaints, maintenance requests and notifications. Every write is stamped
// with the caller's identity by the service, never trusted from the body.
type TenantService struct {
	db *mongo.Database
}

func NewTenantService(db *mongo.Database) *TenantService {
	return &TenantService{db: db}
}

func (s *TenantService) CreateComplaint(ctx context.Context, userID string, c *models.Complaint) (*models.Complaint, error) {
	c.Subject = strings.TrimSpace(c.Subject)
	c.Description = strings.TrimSpace(c.Description)
	if c.Subject == "" || c.Description == "" {
		return nil, fmt.Errorf("%w: subject and description are required", ErrValidation)
	}

	c.ID = primitive.NewObjectID()
	c.UserID = userID
	c.Status = models.ComplaintOpen
	c.CreatedAt = time.Now()

	if _, err := s.db.Collection("complaints").InsertOne(ctx, c); err != nil {
		log.Printf("Failed to create complaint for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to create complaint: %v", err)
	}
	return c, nil
}

func (s *TenantService) ListComplaints(ctx context.Context, userID string) ([]models.Complaint, error) {
	cur, err := s.db.Collection("complaints").Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var complaints []models.Complaint
	if err := cur.All(ctx, &complaints); err != nil {
		return nil, err
	}
	return complaints, nil
}

func (s *TenantService) CreateRequest(ctx context.Context, userID string, r *models.MaintenanceRequest) (*models.MaintenanceRequest, error) {
	r.RequestSubject = strings.TrimSpace(r.RequestSubject)
	r.Description = strings.TrimSpace(r.Description)
	if r.RequestSubject == "" || r.Description == "" {
		return nil, fmt.Errorf("%w: subject and description are required", ErrValidation)
	}
	switch r.Urgency {
	case models.UrgencyLow, models.UrgencyMedium, models.UrgencyHigh:
	case "":
		r.Urgency = models.UrgencyMedium
	default:
		return nil, fmt.Errorf("%w: urgency must be Low, Medium or High", ErrValidation)
	}

	r.ID = primitive.NewObjectID()
	r.UserID = userID
	r.IsResolved = false
	r.CreatedAt = time.Now()

	if _, err := s.db.Collection("maintenance_requests").InsertOne(ctx, r); err != nil {
		log.Printf("Failed to create maintenance request for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	return r, nil
}

func (s *TenantService) ListRequests(ctx context.Context, userID string) ([]models.MaintenanceRequest, error) {
	cur, err := s.db.Collection("maintenance_requests").Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var requests []models.MaintenanceRequest
	if err := cur.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *TenantService) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	cur, err := s.db.Collection("notifications").Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.M{"timestamp": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var notifications []models.Notification
	if err := cur.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead flips is_read on a notification the caller owns.
// Someone else's notification reads as ErrNotFound.
func (s *TenantService) MarkNotificationRead(ctx context.Context, userID, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := s.db.Collection("notifications").UpdateOne(ctx,
		bson.M{"_id": objID, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		log.Printf("Failed to mark notification %s read: %v", id, err)
		return fmt.Errorf("failed to update notification: %v", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DashboardCounts summarizes the tenant's open items for the dashboard.
type DashboardCounts struct {
	Username            string `json:"username"`
	OpenComplaints      int64  `json:"open_complaints"`
	UnreadNotifications int64  `json:"unread_notifications"`
}

func (s *TenantService) DashboardCounts(ctx context.Context, userID, username string) (*DashboardCounts, error) {
	open, err := s.db.Collection("complaints").CountDocuments(ctx, bson.M{
		"user_id": userID,
		"status":  bson.M{"$in": []string{models.ComplaintOpen, models.ComplaintPending}},
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.db.Collection("notifications").CountDocuments(ctx, bson.M{
		"user_id": userID,
		"is_read": false,
	})
	if err != nil {
		return nil, err
	}
	return &DashboardCounts{Username: username, OpenComplaints: open, UnreadNotifications: unread}, nil
}
