package routes

import (
	"github.com/srishtayal/nalum-sub003/controllers"
	"github.com/srishtayal/nalum-sub003/middleware"
	"github.com/srishtayal/nalum-sub003/services"

	"github.com/gorilla/mux"
)

// RegisterConnectionRoutes sets up routes for the connection graph under /api/connections
func RegisterConnectionRoutes(r *mux.Router, connectionService *services.ConnectionService, tokenService *services.TokenService) {
	controller := controllers.NewConnectionController(connectionService)

	connectionRouter := r.PathPrefix("/api/connections").Subrouter()
	connectionRouter.Use(middleware.Auth(tokenService))

	connectionRouter.HandleFunc("/request", controller.HandleSendRequest).Methods("POST")
	connectionRouter.HandleFunc("/respond", controller.HandleRespond).Methods("POST")
	connectionRouter.HandleFunc("", controller.HandleList).Methods("GET")
	connectionRouter.HandleFunc("/pending", controller.HandlePending).Methods("GET")
	connectionRouter.HandleFunc("/sent", controller.HandleSent).Methods("GET")
	connectionRouter.HandleFunc("/cancel/{recipientId}", controller.HandleCancel).Methods("DELETE")
	connectionRouter.HandleFunc("/block", controller.HandleBlockByUser).Methods("POST")
	connectionRouter.HandleFunc("/unblock", controller.HandleUnblock).Methods("POST")
	connectionRouter.HandleFunc("/{connectionId}/block", controller.HandleBlock).Methods("POST")
	connectionRouter.HandleFunc("/{connectionId}", controller.HandleRemove).Methods("DELETE")
}
