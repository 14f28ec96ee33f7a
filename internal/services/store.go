package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carlvyper/rental-portal/internal/models"
)

// MongoTransactionStore persists STK push transactions in the
// mpesa_transactions collection.
type MongoTransactionStore struct {
	collection *mongo.Collection
}

func NewMongoTransactionStore(db *mongo.Database) *MongoTransactionStore {
	return &MongoTransactionStore{collection: db.Collection("mpesa_transactions")}
}

// EnsureIndexes creates the unique checkout index the CAS finalize relies on,
// plus the listing index.
func (s *MongoTransactionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"checkout_request_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		log.Printf("Failed to create transaction indexes: %v", err)
	}
	return err
}

func (s *MongoTransactionStore) Insert(ctx context.Context, tx *models.MpesaTransaction) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx.ID = primitive.NewObjectID()
	_, err := s.collection.InsertOne(ctx, tx)
	return err
}

func (s *MongoTransactionStore) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.MpesaTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tx models.MpesaTransaction
	err := s.collection.FindOne(ctx, bson.M{"checkout_request_id": checkoutID}).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *MongoTransactionStore) FindOwnedByID(ctx context.Context, id, userID string) (*models.MpesaTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var tx models.MpesaTransaction
	err = s.collection.FindOne(ctx, bson.M{"_id": objID, "user_id": userID}).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *MongoTransactionStore) ListCompletedByUser(ctx context.Context, userID string) ([]models.MpesaTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := s.collection.Find(ctx,
		bson.M{"user_id": userID, "status": models.StatusCompleted},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var txs []models.MpesaTransaction
	if err := cur.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// FinalizePending is the compare-and-swap on transaction state: the filter
// matches only a PENDING document, so of N concurrent deliveries of the same
// callback exactly one observes the match and performs the transition.
func (s *MongoTransactionStore) FinalizePending(ctx context.Context, checkoutID, status, receipt string, raw []byte) (*models.MpesaTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"status":        status,
		"callback_data": raw,
		"updated_at":    time.Now(),
	}
	if receipt != "" {
		set["mpesa_receipt_number"] = receipt
	}

	var tx models.MpesaTransaction
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"checkout_request_id": checkoutID, "status": models.StatusPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// MongoPaymentStore persists confirmed payments.
type MongoPaymentStore struct {
	collection *mongo.Collection
}

func NewMongoPaymentStore(db *mongo.Database) *MongoPaymentStore {
	return &MongoPaymentStore{collection: db.Collection("payments")}
}

func (s *MongoPaymentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"transaction_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		log.Printf("Failed to create payment indexes: %v", err)
	}
	return err
}

func (s *MongoPaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.ID = primitive.NewObjectID()
	_, err := s.collection.InsertOne(ctx, p)
	return err
}

func (s *MongoPaymentStore) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := s.collection.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.M{"timestamp": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var payments []models.Payment
	if err := cur.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
