package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/carlvyper/rental-portal/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserService struct {
	collection *mongo.Collection
}

func NewUserService(db *mongo.Database) *UserService {
	return &UserService{collection: db.Collection("users")}
}

func (s *UserService) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"username": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		log.Printf("Failed to create user indexes: %v", err)
	}
	return err
}

// Register creates a tenant account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Email:     email,
		HPassword: string(hashed),
		CreatedAt: time.Now(),
	}
	if _, err := s.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrValidation)
		}
		log.Printf("Failed to create user %s: %v", username, err)
		return nil, fmt.Errorf("failed to create user: %v", err)
	}
	return user, nil
}

// Login accepts an email or username plus a password. Both unknown account
// and wrong password read as ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{
		"$or": []bson.M{{"email": identifier}, {"username": identifier}},
	}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidCredentials
		}
		log.Printf("Failed to look up user %s: %v", identifier, err)
		return nil, fmt.Errorf("failed to fetch user: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var user models.User
	err = s.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate carries the PATCHable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	UnitNumber  *string `json:"unit_number"`
	PhoneNumber *string `json:"phone_number"`
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{}
	if update.Email != nil {
		set["email"] = strings.TrimSpace(*update.Email)
	}
	if update.FirstName != nil {
		set["first_name"] = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		set["last_name"] = strings.TrimSpace(*update.LastName)
	}
	if update.UnitNumber != nil {
		set["unit_number"] = strings.TrimSpace(*update.UnitNumber)
	}
	if update.PhoneNumber != nil {
		set["phone_number"] = strings.TrimSpace(*update.PhoneNumber)
	}
	if len(set) == 0 {
		return s.GetUser(ctx, id)
	}

	var user models.User
	err = s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("Failed to update profile for user %s: %v", id, err)
		return nil, fmt.Errorf("failed to update profile: %v", err)
	}
	return &user, nil
}

// ChangePassword verifies the old password before storing a new hash.
func (s *UserService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HPassword), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	_, err = s.collection.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"password": string(hashed)}})
	if err != nil {
		log.Printf("Failed to change password for user %s: %v", id, err)
		return fmt.Errorf("failed to change password: %v", err)
	}
	return nil
}
