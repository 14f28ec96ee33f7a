package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carlvyper/rental-portal/internal/db"
	"github.com/carlvyper/rental-portal/internal/handlers"
	"github.com/carlvyper/rental-portal/internal/observability"
	"github.com/carlvyper/rental-portal/internal/services"
)

func main() {
	// Load .env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Error loading .env: %s", err)
	}

	uri := os.Getenv("MONGOURI")
	if uri == "" {
		log.Fatal("MONGOURI environment variable not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	client, err := db.Connect(uri)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	database := client.Database("rental_portal")
	metrics := observability.NewMetrics()

	// Stores and indexes
	transactionStore := services.NewMongoTransactionStore(database)
	paymentStore := services.NewMongoPaymentStore(database)
	userService := services.NewUserService(database)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := transactionStore.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to ensure transaction indexes: %v", err)
		}
		if err := paymentStore.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to ensure payment indexes: %v", err)
		}
		if err := userService.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to ensure user indexes: %v", err)
		}
	}

	// Services and handlers
	gateway := services.NewDarajaService()
	ledgerService := services.NewLedgerService(gateway, transactionStore, paymentStore, metrics)
	tenantService := services.NewTenantService(database)

	auth := handlers.NewAuth(jwtSecret)
	authHandler := handlers.NewAuthHandler(userService, auth)
	profileHandler := handlers.NewProfileHandler(userService, tenantService)
	mpesaHandler := handlers.NewMpesaHandler(ledgerService)
	receiptHandler := handlers.NewReceiptHandler(ledgerService)
	tenantHandler := handlers.NewTenantHandler(tenantService)

	// Set up router
	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/api/register", authHandler.Register).Methods("POST")
	router.HandleFunc("/api/login", authHandler.Login).Methods("POST")
	router.HandleFunc("/api/change-password", auth.Require(authHandler.ChangePassword)).Methods("POST")

	router.HandleFunc("/api/profile", auth.Require(profileHandler.GetProfile)).Methods("GET")
	router.HandleFunc("/api/profile", auth.Require(profileHandler.UpdateProfile)).Methods("PATCH")
	router.HandleFunc("/api/dashboard-counts", auth.Require(profileHandler.DashboardCounts)).Methods("GET")

	router.HandleFunc("/api/complaints", auth.Require(tenantHandler.CreateComplaint)).Methods("POST")
	router.HandleFunc("/api/complaints", auth.Require(tenantHandler.ListComplaints)).Methods("GET")
	router.HandleFunc("/api/requests", auth.Require(tenantHandler.CreateRequest)).Methods("POST")
	router.HandleFunc("/api/requests", auth.Require(tenantHandler.ListRequests)).Methods("GET")
	router.HandleFunc("/api/notifications", auth.Require(tenantHandler.ListNotifications)).Methods("GET")
	router.HandleFunc("/api/notifications/{notificationID}/read", auth.Require(tenantHandler.MarkNotificationRead)).Methods("PATCH")

	// M-Pesa: initiation allows anonymous callers, the callback is
	// unauthenticated by protocol, reads require the owner.
	router.HandleFunc("/api/initiate-stk-push", auth.Optional(mpesaHandler.InitiateStkPush)).Methods("POST")
	router.HandleFunc("/api/stk-callback", mpesaHandler.StkCallback)
	router.HandleFunc("/api/check-status", mpesaHandler.CheckStatus).Methods("GET")
	router.HandleFunc("/api/payment-history", auth.Require(mpesaHandler.PaymentHistory)).Methods("GET")
	router.HandleFunc("/api/payments", auth.Require(mpesaHandler.Payments)).Methods("GET")
	router.HandleFunc("/api/download-receipt/{transactionID}", auth.Require(receiptHandler.DownloadReceipt)).Methods("GET")

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(server.ListenAndServe())
}
