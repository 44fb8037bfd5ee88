package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/model"
	"github.com/florawise/outreach-backend/internal/service"
)

type CampaignController struct {
	CampaignService   *service.CampaignService
	GenerationService *service.GenerationService
	SendService       *service.SendService
}

// writeJSON is the shared success encoder.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps typed service errors to status codes and renders the
// conventional {error: message} body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var notFoundCampaign *appErrors.ErrCampaignNotFound
	var notFoundRecipient *appErrors.ErrRecipientNotFound
	var invalidTransition *appErrors.ErrInvalidTransition
	var notDeletable *appErrors.ErrNotDeletable
	var editLocked *appErrors.ErrEditLocked

	switch {
	case errors.As(err, &notFoundCampaign), errors.As(err, &notFoundRecipient):
		status = http.StatusNotFound
	case errors.As(err, &invalidTransition), errors.As(err, &notDeletable):
		status = http.StatusConflict
	case errors.As(err, &editLocked):
		status = http.StatusForbidden
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func urlID(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body model.Campaign
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(&body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	details, err := c.CampaignService.GetCampaignDetails(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var patch service.CampaignPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.UpdateCampaign(id, &patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) AddRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		ContactIDs []int `json:"contact_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	added, err := c.CampaignService.AddRecipients(id, body.ContactIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

// Generate runs one generation batch (batchSize given), everything
// (all=true), or enqueues jobs for the worker (async=true).
func (c *CampaignController) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		BatchSize int  `json:"batchSize"`
		All       bool `json:"all"`
		Async     bool `json:"async"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body) // empty body means defaults
	}

	var result *service.GenerateResult
	switch {
	case body.Async:
		result, err = c.GenerationService.EnqueueGeneration(id)
	case body.All:
		result, err = c.GenerationService.GenerateAll(r.Context(), id)
	default:
		result, err = c.GenerationService.GenerateBatch(r.Context(), id, body.BatchSize)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (c *CampaignController) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := c.GenerationService.CancelGeneration(id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": model.CampaignDraft})
}

func (c *CampaignController) RetryFailed(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	reset, err := c.GenerationService.RetryFailed(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"reset": reset})
}

// SendNext is the send endpoint: one approved recipient per call.
func (c *CampaignController) SendNext(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	result, err := c.SendService.SendNext(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (c *CampaignController) TestSend(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		RecipientID int    `json:"recipientId"`
		SendTo      string `json:"sendTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !govalidator.IsEmail(body.SendTo) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sendTo must be a valid email address"})
		return
	}

	if err := c.SendService.TestSend(id, body.RecipientID, body.SendTo); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}
