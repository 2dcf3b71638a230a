package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thymlegram/thymlegram/internal/store"
	"github.com/thymlegram/thymlegram/internal/utils"
)

// rowParties are the columns a change row can reference a user by.
type rowParties struct {
	UserID        uuid.UUID `json:"user_id"`
	ContactUserID uuid.UUID `json:"contact_user_id"`
	SenderID      uuid.UUID `json:"sender_id"`
	ReceiverID    uuid.UUID `json:"receiver_id"`
}

func eventInvolves(ev store.Event, uid uuid.UUID) bool {
	row := ev.New
	if len(row) == 0 {
		row = ev.Old
	}
	var p rowParties
	if err := json.Unmarshal(row, &p); err != nil {
		return false
	}
	return p.UserID == uid || p.ContactUserID == uid || p.SenderID == uid || p.ReceiverID == uid
}

// GET /api/v1/events
// StreamEvents godoc
// @Summary Stream row-level change events
// @Description Server-sent events for message, temp-message and temp-contact changes involving the authenticated user.
// @Tags Events
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /api/v1/events [get]
func (a *API) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	uid, ok := userID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Streaming not supported",
		})
		return
	}

	tables := []string{store.TableMessages, store.TableTempMessages, store.TableTempContacts}
	subs := make([]store.Subscription, 0, len(tables))
	for _, table := range tables {
		sub, err := a.Notifier.Subscribe(r.Context(), table)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
				Success: false,
				Message: "Failed to subscribe to changes",
			})
			return
		}
		subs = append(subs, sub)
	}
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Keep-alive comments so proxies don't cut an idle stream.
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	write := func(ev store.Event) bool {
		if !eventInvolves(ev, uid) {
			return true
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Table, payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-subs[0].Events():
			if !open || !write(ev) {
				return
			}
		case ev, open := <-subs[1].Events():
			if !open || !write(ev) {
				return
			}
		case ev, open := <-subs[2].Events():
			if !open || !write(ev) {
				return
			}
		}
	}
}
