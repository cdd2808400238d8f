package routes

import (
	"github.com/srishtayal/nalum-sub003/controllers"
	"github.com/srishtayal/nalum-sub003/middleware"
	"github.com/srishtayal/nalum-sub003/services"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes sets up conversation and message routes under /api
func RegisterChatRoutes(r *mux.Router, conversationService *services.ConversationService, messageService *services.MessageService, presenceService *services.PresenceService, tokenService *services.TokenService) {
	conversationController := controllers.NewConversationController(conversationService, messageService, presenceService)
	messageController := controllers.NewMessageController(conversationService, messageService)

	chatRouter := r.PathPrefix("/api").Subrouter()
	chatRouter.Use(middleware.Auth(tokenService))

	chatRouter.HandleFunc("/conversations", conversationController.HandleList).Methods("GET")
	chatRouter.HandleFunc("/conversations", conversationController.HandleCreate).Methods("POST")
	chatRouter.HandleFunc("/conversations/{conversationId}", conversationController.HandleGet).Methods("GET")
	chatRouter.HandleFunc("/conversations/{conversationId}", conversationController.HandleDelete).Methods("DELETE")
	chatRouter.HandleFunc("/conversations/{conversationId}/archive", conversationController.HandleArchive).Methods("POST")
	chatRouter.HandleFunc("/conversations/{conversationId}/unarchive", conversationController.HandleUnarchive).Methods("POST")
	chatRouter.HandleFunc("/conversations/{conversationId}/read", conversationController.HandleMarkRead).Methods("POST")

	chatRouter.HandleFunc("/conversations/{conversationId}/messages", messageController.HandleList).Methods("GET")
	chatRouter.HandleFunc("/conversations/{conversationId}/messages", messageController.HandleSend).Methods("POST")
	chatRouter.HandleFunc("/messages/{messageId}/read", messageController.HandleMarkRead).Methods("POST")
	chatRouter.HandleFunc("/messages/{messageId}", messageController.HandleDelete).Methods("DELETE")
}
