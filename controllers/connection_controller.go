package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/srishtayal/nalum-sub003/middleware"
	"github.com/srishtayal/nalum-sub003/services"

	"github.com/gorilla/mux"
)

// ConnectionController exposes the connection graph over HTTP.
type ConnectionController struct {
	Connections *services.ConnectionService
}

func NewConnectionController(service *services.ConnectionService) *ConnectionController {
	return &ConnectionController{Connections: service}
}

// HandleSendRequest - send a connection request
func (c *ConnectionController) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var request struct {
		RecipientID    string  `json:"recipientId"`
		RequestMessage *string `json:"requestMessage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	conn, err := c.Connections.SendRequest(r.Context(), userID, request.RecipientID, request.RequestMessage)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Connection request sent successfully",
		"connection": conn,
	})
}

// HandleRespond - accept or reject a pending request
func (c *ConnectionController) HandleRespond(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var request struct {
		ConnectionID string `json:"connectionId"`
		Action       string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.ConnectionID == "" || request.Action == "" {
		http.Error(w, `{"error": "Connection ID and action are required"}`, http.StatusBadRequest)
		return
	}

	conn, err := c.Connections.RespondToRequest(r.Context(), userID, request.ConnectionID, request.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Connection request " + request.Action + "ed successfully",
		"connection": conn,
	})
}

// HandleList - all connections involving the caller, optionally by status
func (c *ConnectionController) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	status := r.URL.Query().Get("status")

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	connections, err := c.Connections.ListConnections(r.Context(), userID, status, int32(limit))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": connections})
}

// HandlePending - incoming pending requests
func (c *ConnectionController) HandlePending(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	pending, err := c.Connections.ListPending(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": pending})
}

// HandleSent - outgoing pending requests
func (c *ConnectionController) HandleSent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	sent, err := c.Connections.ListSent(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": sent})
}

// HandleCancel - withdraw a still-pending outgoing request
func (c *ConnectionController) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	recipientID := mux.Vars(r)["recipientId"]

	if err := c.Connections.CancelRequest(r.Context(), userID, recipientID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Connection request cancelled"})
}

// HandleRemove - hard-delete an accepted connection
func (c *ConnectionController) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	connectionID := mux.Vars(r)["connectionId"]

	if err := c.Connections.RemoveConnection(r.Context(), userID, connectionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Connection removed successfully"})
}

// HandleBlock - block the other participant of a connection
func (c *ConnectionController) HandleBlock(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	connectionID := mux.Vars(r)["connectionId"]

	conn, err := c.Connections.BlockUser(r.Context(), userID, connectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "User blocked successfully",
		"connection": conn,
	})
}

// HandleBlockByUser - block given only the other user's id (chat window)
func (c *ConnectionController) HandleBlockByUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var request struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.UserID == "" {
		http.Error(w, `{"error": "User ID is required"}`, http.StatusBadRequest)
		return
	}

	conn, err := c.Connections.BlockUserByUserID(r.Context(), userID, request.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "User blocked successfully",
		"connection": conn,
	})
}

// HandleUnblock - reverse a block (blocker only, clean slate)
func (c *ConnectionController) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var request struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.UserID == "" {
		http.Error(w, `{"error": "Target User ID is required"}`, http.StatusBadRequest)
		return
	}

	if err := c.Connections.UnblockUser(r.Context(), userID, request.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User unblocked successfully"})
}
