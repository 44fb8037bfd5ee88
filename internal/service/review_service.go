package service

import (
	"context"
	"fmt"

	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/generation"
	"github.com/florawise/outreach-backend/internal/model"
	"github.com/florawise/outreach-backend/internal/repository"
)

// recipientTransitions is the allowed recipient status graph. Approve is
// additionally guarded by content presence, and deletion by Deletable.
var recipientTransitions = map[string][]string{
	model.RecipientPending:    {model.RecipientGenerated, model.RecipientSuppressed},
	model.RecipientGenerated:  {model.RecipientApproved, model.RecipientSuppressed},
	model.RecipientApproved:   {model.RecipientGenerated, model.RecipientQueued, model.RecipientSuppressed},
	model.RecipientQueued:     {model.RecipientSent, model.RecipientFailed, model.RecipientBounced, model.RecipientSuppressed},
	model.RecipientSent:       {model.RecipientDelivered, model.RecipientBounced, model.RecipientSuppressed},
	model.RecipientDelivered:  {model.RecipientOpened, model.RecipientSuppressed},
	model.RecipientOpened:     {model.RecipientClicked, model.RecipientSuppressed},
	model.RecipientClicked:    {model.RecipientSuppressed},
	model.RecipientBounced:    {model.RecipientSuppressed},
	model.RecipientFailed:     {model.RecipientPending, model.RecipientGenerated, model.RecipientSuppressed},
	model.RecipientSuppressed: {model.RecipientApproved},
}

func recipientCanTransition(from, to string) bool {
	for _, s := range recipientTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ReviewService drives the operator-facing recipient workflow:
// approve, unapprove, edit, regenerate, delete, bulk variants,
// suppress and unsuppress.
type ReviewService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	ContactRepo   repository.ContactRepositoryInterface
	SenderRepo    repository.SenderProfileRepositoryInterface
	Generator     generation.Generator
}

func (s *ReviewService) getRecipient(id int) (*model.Recipient, error) {
	rec, err := s.RecipientRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, appErrors.NewRecipientNotFound(id)
	}
	return rec, nil
}

// Approve moves generated -> approved. Approving an already-approved
// recipient is a no-op success; approving one without generated content
// is rejected.
func (s *ReviewService) Approve(id int) (*model.Recipient, error) {
	rec, err := s.getRecipient(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.RecipientApproved {
		return rec, nil // idempotent
	}
	if !rec.HasContent() {
		return nil, fmt.Errorf("recipient %d has no generated content to approve", id)
	}
	if !recipientCanTransition(rec.Status, model.RecipientApproved) {
		return nil, appErrors.NewInvalidTransition("recipient", rec.Status, model.RecipientApproved)
	}
	if err := s.RecipientRepo.UpdateStatus(id, model.RecipientApproved, true); err != nil {
		return nil, err
	}
	rec.Status = model.RecipientApproved
	rec.Approved = true
	return rec, nil
}

// Unapprove reverses Approve: approved -> generated.
func (s *ReviewService) Unapprove(id int) (*model.Recipient, error) {
	rec, err := s.getRecipient(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.RecipientGenerated {
		return rec, nil
	}
	if rec.Status != model.RecipientApproved {
		return nil, appErrors.NewInvalidTransition("recipient", rec.Status, model.RecipientGenerated)
	}
	if err := s.RecipientRepo.UpdateStatus(id, model.RecipientGenerated, false); err != nil {
		return nil, err
	}
	rec.Status = model.RecipientGenerated
	rec.Approved = false
	return rec, nil
}

// Edit overrides subject/body and recomputes the HTML body. Status is
// deliberately untouched.
func (s *ReviewService) Edit(id int, subject, body string) (*model.Recipient, error) {
	rec, err := s.getRecipient(id)
	if err != nil {
		return nil, err
	}

	bodyHTML := BodyToHTML(body)
	if err := s.RecipientRepo.UpdateContent(id, subject, body, bodyHTML); err != nil {
		return nil, err
	}
	rec.Subject = subject
	rec.Body = body
	rec.BodyHTML = bodyHTML
	return rec, nil
}

// Regenerate re-invokes content generation for one recipient, replacing
// subject/body in place. Status resets to generated and any approval is
// cleared. The previous content is gone for good.
func (s *ReviewService) Regenerate(ctx context.Context, id int) (*model.Recipient, error) {
	rec, err := s.getRecipient(id)
	if err != nil {
		return nil, err
	}

	switch rec.Status {
	case model.RecipientPending, model.RecipientGenerated, model.RecipientApproved, model.RecipientFailed:
	default:
		return nil, appErrors.NewInvalidTransition("recipient", rec.Status, model.RecipientGenerated)
	}

	email, err := s.generateFor(ctx, rec)
	if err != nil {
		return nil, err
	}

	bodyHTML := BodyToHTML(email.Body)
	if err := s.RecipientRepo.UpdateContent(id, email.Subject, email.Body, bodyHTML); err != nil {
		return nil, err
	}
	if err := s.RecipientRepo.UpdateStatus(id, model.RecipientGenerated, false); err != nil {
		return nil, err
	}

	rec.Subject = email.Subject
	rec.Body = email.Body
	rec.BodyHTML = bodyHTML
	rec.Status = model.RecipientGenerated
	rec.Approved = false
	return rec, nil
}

// generateFor assembles the generation request for one recipient.
func (s *ReviewService) generateFor(ctx context.Context, rec *model.Recipient) (*generation.Email, error) {
	campaign, err := s.CampaignRepo.GetByID(rec.CampaignID)
	if err != nil {
		return nil, err
	}
	contact, err := s.ContactRepo.GetByID(rec.ContactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %d not found for recipient %d", rec.ContactID, rec.ID)
	}
	events, err := s.CampaignRepo.GetEvents(rec.CampaignID)
	if err != nil {
		return nil, err
	}

	var sender *model.SenderProfile
	if campaign.SenderProfileID != nil {
		sender, err = s.SenderRepo.GetByID(*campaign.SenderProfileID)
		if err != nil {
			return nil, err
		}
	}

	return s.Generator.Generate(ctx, generation.Request{
		Campaign: campaign,
		Contact:  contact,
		Sender:   sender,
		Events:   events,
	})
}

// Delete hard-removes a recipient. Permitted only for pending, generated
// and failed; never once sent.
func (s *ReviewService) Delete(id int) error {
	rec, err := s.getRecipient(id)
	if err != nil {
		return err
	}
	if !rec.Deletable() {
		return appErrors.NewNotDeletable(id, rec.Status)
	}
	return s.RecipientRepo.Delete(id)
}

// BulkApprove approves the given recipients, or all remaining generated
// ones when ids is empty. Returns the count actually updated.
func (s *ReviewService) BulkApprove(campaignID int, ids []int) (int, error) {
	if len(ids) == 0 {
		recipients, err := s.RecipientRepo.ListByCampaign(campaignID, model.RecipientGenerated)
		if err != nil {
			return 0, err
		}
		for _, rec := range recipients {
			ids = append(ids, rec.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.RecipientRepo.BulkApprove(campaignID, ids)
}

func (s *ReviewService) BulkDelete(campaignID int, ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.RecipientRepo.BulkDelete(campaignID, ids)
}

// Suppress takes a recipient out of the send-eligible set with a reason.
func (s *ReviewService) Suppress(id int, reason string) (*model.Recipient, error) {
	rec, err := s.getRecipient(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.RecipientSuppressed {
		return rec, nil
	}
	if reason == "" {
		reason = "manual"
	}
	if err := s.RecipientRepo.SetSuppressed(id, reason); err != nil {
		return nil, err
	}
	rec.Status = model.RecipientSuppressed
	rec.Approved = false
	rec.SuppressionReason = reason
	return rec, nil
}

// ApplyStatus dispatches a requested status change from the PATCH
// recipient endpoint to the right workflow operation.
func (s *ReviewService) ApplyStatus(id int, status, reason string) (*model.Recipient, error) {
	rec, err := s.getRecipient(id)
	if err != nil {
		return nil, err
	}

	switch status {
	case model.RecipientApproved:
		if rec.Status == model.RecipientSuppressed {
			return s.Unsuppress(id)
		}
		return s.Approve(id)
	case model.RecipientGenerated:
		return s.Unapprove(id)
	case model.RecipientSuppressed:
		return s.Suppress(id, reason)
	case model.RecipientDelivered, model.RecipientOpened, model.RecipientClicked, model.RecipientBounced:
		// Post-send tracking progressions.
		if rec.Status == status {
			return rec, nil
		}
		if !recipientCanTransition(rec.Status, status) {
			return nil, appErrors.NewInvalidTransition("recipient", rec.Status, status)
		}
		if err := s.RecipientRepo.UpdateStatus(id, status, false); err != nil {
			return nil, err
		}
		rec.Status = status
		rec.Approved = false
		return rec, nil
	default:
		return nil, appErrors.NewInvalidTransition("recipient", rec.Status, status)
	}
}

// Unsuppress is the manual override: suppressed -> approved, reason
// cleared.
func (s *ReviewService) Unsuppress(id int) (*model.Recipient, error) {
	rec, err := s.getRecipient(id)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.RecipientSuppressed {
		return nil, appErrors.NewInvalidTransition("recipient", rec.Status, model.RecipientApproved)
	}
	if err := s.RecipientRepo.ClearSuppression(id); err != nil {
		return nil, err
	}
	rec.Status = model.RecipientApproved
	rec.Approved = true
	rec.SuppressionReason = ""
	return rec, nil
}
