package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/thymlegram/thymlegram/internal/utils"
)

// GET  /api/v1/contacts/{id}/messages
// POST /api/v1/contacts/{id}/messages
// Messages godoc
// @Summary List or send messages with a contact
// @Description GET returns both directions of the conversation ordered oldest first, bodies decrypted; POST encrypts and stores a new message.
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Contact user id"
// @Success 200 {object} utils.Payload "Messages retrieved successfully"
// @Failure 400 {object} utils.Payload "Invalid contact id or empty message"
// @Router /api/v1/contacts/{id}/messages [get]
func (a *API) Messages(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	contactID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid contact id",
		})
		return
	}

	switch r.Method {
	case http.MethodGet:
		messages, err := a.Svc.LoadMessages(r.Context(), uid, contactID)
		if err != nil {
			writeChatError(w, err)
			return
		}
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "Messages retrieved successfully",
			Data:    messages,
		})

	case http.MethodPost:
		var input struct {
			Content string `json:"content"`
		}
		if !decodeJSON(w, r, &input) {
			return
		}
		sent, err := a.Svc.SendMessage(r.Context(), uid, contactID, input.Content)
		if err != nil {
			writeChatError(w, err)
			return
		}
		utils.JSONResponse(w, http.StatusCreated, utils.Payload{
			Success: true,
			Message: "Message sent successfully",
			Data:    sent,
		})

	default:
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
	}
}
