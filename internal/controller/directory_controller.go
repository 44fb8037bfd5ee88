package controller

import (
	"encoding/json"
	"net/http"

	"github.com/asaskevich/govalidator"

	"github.com/florawise/outreach-backend/internal/model"
	"github.com/florawise/outreach-backend/internal/repository"
)

// DirectoryController serves the supporting directories: contacts and
// sender profiles.
type DirectoryController struct {
	ContactRepo repository.ContactRepositoryInterface
	SenderRepo  repository.SenderProfileRepositoryInterface
}

func (c *DirectoryController) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := c.ContactRepo.ListAll()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (c *DirectoryController) CreateContact(w http.ResponseWriter, r *http.Request) {
	var body model.Contact
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !govalidator.IsEmail(body.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email must be a valid address"})
		return
	}

	if err := c.ContactRepo.Create(&body); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, body)
}

func (c *DirectoryController) ListSenderProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := c.SenderRepo.ListAll()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (c *DirectoryController) CreateSenderProfile(w http.ResponseWriter, r *http.Request) {
	var body model.SenderProfile
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !govalidator.IsEmail(body.FromEmail) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from_email must be a valid address"})
		return
	}

	if err := c.SenderRepo.Create(&body); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, body)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
