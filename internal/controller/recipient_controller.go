package controller

import (
	"encoding/json"
	"net/http"

	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/service"
)

type RecipientController struct {
	ReviewService *service.ReviewService
}

// UpdateRecipient handles PATCH on one recipient: content edits, status
// changes (approve/unapprove/suppress/unsuppress/tracking) or both.
func (c *RecipientController) UpdateRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID, err := urlID(r, "recipientID")
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	var body struct {
		Status            *string `json:"status"`
		Approved          *bool   `json:"approved"`
		Subject           *string `json:"subject"`
		Body              *string `json:"body"`
		SuppressionReason string  `json:"suppression_reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rec, err := c.ReviewService.RecipientRepo.GetByID(recipientID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, appErrors.NewRecipientNotFound(recipientID))
		return
	}

	// Content edit first so an edit+approve in one call approves the
	// edited text.
	if body.Subject != nil || body.Body != nil {
		subject, text := rec.Subject, rec.Body
		if body.Subject != nil {
			subject = *body.Subject
		}
		if body.Body != nil {
			text = *body.Body
		}
		updated, err := c.ReviewService.Edit(recipientID, subject, text)
		if err != nil {
			writeError(w, err)
			return
		}
		rec = updated
	}

	status := body.Status
	if status == nil && body.Approved != nil {
		// Boolean mirror used alone: approved=true means Approve,
		// approved=false means Unapprove.
		s := "generated"
		if *body.Approved {
			s = "approved"
		}
		status = &s
	}

	if status != nil {
		updated, err := c.ReviewService.ApplyStatus(recipientID, *status, body.SuppressionReason)
		if err != nil {
			writeError(w, err)
			return
		}
		rec = updated
	}

	writeJSON(w, http.StatusOK, rec)
}

func (c *RecipientController) Regenerate(w http.ResponseWriter, r *http.Request) {
	recipientID, err := urlID(r, "recipientID")
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	rec, err := c.ReviewService.Regenerate(r.Context(), recipientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (c *RecipientController) DeleteRecipient(w http.ResponseWriter, r *http.Request) {
	recipientID, err := urlID(r, "recipientID")
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	if err := c.ReviewService.Delete(recipientID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (c *RecipientController) BulkDelete(w http.ResponseWriter, r *http.Request) {
	campaignID, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		RecipientIDs []int `json:"recipientIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	deleted, err := c.ReviewService.BulkDelete(campaignID, body.RecipientIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// BulkApprove approves a list of recipients, or all remaining generated
// ones when the list is empty.
func (c *RecipientController) BulkApprove(w http.ResponseWriter, r *http.Request) {
	campaignID, err := urlID(r, "id")
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		RecipientIDs []int `json:"recipientIds"`
		Approved     bool  `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !body.Approved {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bulk unapprove is not supported"})
		return
	}

	updated, err := c.ReviewService.BulkApprove(campaignID, body.RecipientIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}
