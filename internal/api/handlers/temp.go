package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thymlegram/thymlegram/internal/chat"
	"github.com/thymlegram/thymlegram/internal/utils"
)

// tempContactByID resolves one of the caller's own temporary-contact rows.
func (a *API) tempContactByID(r *http.Request, uid uuid.UUID) (*chat.TempContact, bool, error) {
	rowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, false, err
	}
	contacts, err := a.Svc.LoadTempContacts(r.Context(), uid)
	if err != nil {
		return nil, false, err
	}
	for i := range contacts {
		if contacts[i].ID == rowID {
			return &contacts[i], true, nil
		}
	}
	return nil, false, nil
}

// GET  /api/v1/temp/contacts
// POST /api/v1/temp/contacts
// TempContacts godoc
// @Summary List or create temporary conversations
// @Description POST creates two mirrored rows sharing one expiry and conversation id; duration_minutes sets the time to live.
// @Tags Temporary
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload "Temporary contacts retrieved successfully"
// @Failure 400 {object} utils.Payload "Validation failure"
// @Router /api/v1/temp/contacts [get]
func (a *API) TempContacts(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	switch r.Method {
	case http.MethodGet:
		contacts, err := a.Svc.LoadTempContacts(r.Context(), uid)
		if err != nil {
			writeChatError(w, err)
			return
		}
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "Temporary contacts retrieved successfully",
			Data:    contacts,
		})

	case http.MethodPost:
		var input struct {
			Username        string `json:"username"`
			DurationMinutes int    `json:"duration_minutes"`
		}
		if !decodeJSON(w, r, &input) {
			return
		}
		if input.DurationMinutes <= 0 {
			input.DurationMinutes = 10
		}
		created, err := a.Svc.AddTempContact(r.Context(), uid, input.Username,
			time.Duration(input.DurationMinutes)*time.Minute)
		if err != nil {
			writeChatError(w, err)
			return
		}
		utils.JSONResponse(w, http.StatusCreated, utils.Payload{
			Success: true,
			Message: "Temporary contact added successfully",
			Data:    created,
		})

	default:
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
	}
}

// GET  /api/v1/temp/contacts/{id}/messages
// POST /api/v1/temp/contacts/{id}/messages
func (a *API) TempMessages(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	contact, found, err := a.tempContactByID(r, uid)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid contact id",
		})
		return
	}
	if !found {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Temporary contact not found",
		})
		return
	}

	switch r.Method {
	case http.MethodGet:
		messages, err := a.Svc.LoadTempMessages(r.Context(), uid, contact.ContactUserID)
		if err != nil {
			writeChatError(w, err)
			return
		}
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "Messages retrieved successfully",
			Data: map[string]any{
				"messages":   messages,
				"expires_at": contact.ExpiresAt,
				"remaining":  chat.RemainingTime(contact.ExpiresAt, time.Now()),
			},
		})

	case http.MethodPost:
		var input struct {
			Content string `json:"content"`
		}
		if !decodeJSON(w, r, &input) {
			return
		}
		err := a.Svc.SendTempMessage(r.Context(), uid, contact.ContactUserID, contact.ConversationID, input.Content)
		if err != nil {
			writeChatError(w, err)
			return
		}
		utils.JSONResponse(w, http.StatusCreated, utils.Payload{
			Success: true,
			Message: "Message sent successfully",
		})

	default:
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
	}
}

// POST /api/v1/temp/contacts/{id}/stop
// StopConversation godoc
// @Summary Stop a temporary conversation
// @Description Deletes every message of the conversation, then both mirrored contact rows.
// @Tags Temporary
// @Produce json
// @Param id path string true "Temporary contact row id"
// @Success 200 {object} utils.Payload "Conversation stopped"
// @Failure 404 {object} utils.Payload "Temporary contact not found"
// @Router /api/v1/temp/contacts/{id}/stop [post]
func (a *API) StopConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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

	contact, found, err := a.tempContactByID(r, uid)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid contact id",
		})
		return
	}
	if !found {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Temporary contact not found",
		})
		return
	}

	if err := a.Svc.StopConversation(r.Context(), uid, contact.ContactUserID); err != nil {
		writeChatError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Conversation stopped",
	})
}

// POST /api/v1/temp/cleanup
// CleanupExpired godoc
// @Summary Sweep expired temporary conversations
// @Description Deletes all conversations whose expiry is in the past. Safe to call repeatedly; concurrent sweeps are harmless.
// @Tags Temporary
// @Produce json
// @Success 200 {object} utils.Payload "Cleanup completed"
// @Router /api/v1/temp/cleanup [post]
func (a *API) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	if _, ok := userID(r); !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	removed, err := a.Svc.CleanExpiredConversations(r.Context())
	if err != nil {
		writeChatError(w, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Cleanup completed",
		Data:    map[string]any{"removed_contacts": removed},
	})
}
