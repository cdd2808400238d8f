package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/srishtayal/nalum-sub003/routes"
	"github.com/srishtayal/nalum-sub003/services"
	"github.com/srishtayal/nalum-sub003/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient()
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	// Redis backs presence, typing, rate limiting and the socket adapter;
	// everything keeps working without it, just degraded
	redisAddr, redisPassword := services.RedisAddrFromEnv()
	presenceService := &services.PresenceService{Pool: services.NewRedisPool(redisAddr, redisPassword)}

	tokenService := services.NewTokenService(os.Getenv("JWT_SECRET"))

	// Initialize Services
	connectionService := &services.ConnectionService{Dynamo: dynamoService}
	conversationService := &services.ConversationService{Dynamo: dynamoService, Connections: connectionService}
	messageService := &services.MessageService{Dynamo: dynamoService, Conversations: conversationService}

	// Realtime gateway
	gateway := socket.NewChatServer(tokenService, presenceService, conversationService, messageService)
	gateway.ConfigureRedisAdapter(redisAddr)
	connectionService.Notifier = gateway

	go func() {
		if err := gateway.Server.Serve(); err != nil {
			log.Printf("❌ Socket server error: %v", err)
		}
	}()
	defer gateway.Server.Close()

	// Set up the server port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Using server port: %s\n", port)

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to the NALUM chat service")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Realtime endpoint
	r.PathPrefix("/socket.io/").Handler(gateway.Server)

	// Register routes
	routes.RegisterConnectionRoutes(r, connectionService, tokenService)
	routes.RegisterChatRoutes(r, conversationService, messageService, presenceService, tokenService)

	// Add CORS middleware
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "*"
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}
