package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/thymlegram/thymlegram/internal/api/middleware"
	"github.com/thymlegram/thymlegram/internal/chat"
	"github.com/thymlegram/thymlegram/internal/store"
	"github.com/thymlegram/thymlegram/internal/utils"
)

// API bundles the handler dependencies. Handlers reach the data service only
// through the chat service and the store boundary, so tests run them against
// the in-memory backend.
type API struct {
	Svc      *chat.Service
	Store    store.Store
	Notifier store.Notifier
}

func NewAPI(svc *chat.Service, st store.Store, notifier store.Notifier) *API {
	return &API{Svc: svc, Store: st, Notifier: notifier}
}

// userID extracts the authenticated user set by the auth middleware.
func userID(r *http.Request) (uuid.UUID, bool) {
	raw, _ := r.Context().Value(middleware.UserIDKey).(string)
	id, err := uuid.Parse(raw)
	return id, err == nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return false
	}
	return true
}

// writeChatError maps validation failures to 4xx and everything else to a
// logged 500 with a generic message.
func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrUnknownUser):
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "User not found",
		})
	case errors.Is(err, chat.ErrEmptyUsername):
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Username is required",
		})
	case errors.Is(err, chat.ErrSelfContact):
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "You cannot add yourself as a contact",
		})
	case errors.Is(err, chat.ErrDuplicateContact):
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "This contact already exists",
		})
	case errors.Is(err, chat.ErrEmptyMessage):
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Message is empty",
		})
	default:
		log.Printf("handler error: %v", err)
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Something went wrong",
		})
	}
}
