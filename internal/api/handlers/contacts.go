package handlers

import (
	"net/http"

	"github.com/thymlegram/thymlegram/internal/utils"
)

// GET  /api/v1/contacts
// POST /api/v1/contacts
// Contacts godoc
// @Summary List or add contacts
// @Description GET returns the contact list with decrypted last-message previews; POST adds a mirrored contact pair by username.
// @Tags Contacts
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload "Contacts retrieved successfully"
// @Failure 400 {object} utils.Payload "Validation failure"
// @Failure 404 {object} utils.Payload "User not found"
// @Router /api/v1/contacts [get]
func (a *API) Contacts(w http.ResponseWriter, r *http.Request) {
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
		contacts, err := a.Svc.LoadContacts(r.Context(), uid)
		if err != nil {
			writeChatError(w, err)
			return
		}
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "Contacts retrieved successfully",
			Data:    contacts,
		})

	case http.MethodPost:
		var input struct {
			Username string `json:"username"`
		}
		if !decodeJSON(w, r, &input) {
			return
		}
		if err := a.Svc.AddContact(r.Context(), uid, input.Username); err != nil {
			writeChatError(w, err)
			return
		}
		utils.JSONResponse(w, http.StatusCreated, utils.Payload{
			Success: true,
			Message: "Contact added successfully",
		})

	default:
		utils.JSONResponse(w, http.StatusMethodNotAllowed, utils.Payload{
			Success: false,
			Message: "Method not allowed",
		})
	}
}
