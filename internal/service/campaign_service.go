package service

import (
	"fmt"
	"log"

	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/model"
	"github.com/florawise/outreach-backend/internal/repository"
)

// campaignTransitions is the closed transition graph:
// draft -> generating -> draft/ready, ready/paused -> sending,
// sending <-> paused, sending -> completed (loop drain).
var campaignTransitions = map[string][]string{
	model.CampaignDraft:      {model.CampaignGenerating, model.CampaignReady},
	model.CampaignGenerating: {model.CampaignDraft},
	model.CampaignReady:      {model.CampaignSending},
	model.CampaignSending:    {model.CampaignPaused, model.CampaignCompleted},
	model.CampaignPaused:     {model.CampaignSending},
	model.CampaignCompleted:  {},
}

func campaignCanTransition(from, to string) bool {
	for _, s := range campaignTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	ContactRepo   repository.ContactRepositoryInterface
	SenderRepo    repository.SenderProfileRepositoryInterface
}

// CampaignDetails is the full detail payload: campaign + recipients +
// sender profile + events + stats by status.
type CampaignDetails struct {
	Campaign   *model.Campaign      `json:"campaign"`
	Recipients []model.Recipient    `json:"recipients"`
	Sender     *model.SenderProfile `json:"sender_profile,omitempty"`
	Events     []model.Event        `json:"events"`
	Stats      map[string]int       `json:"stats"`
}

// CampaignPatch carries a partial update. Nil fields are untouched.
type CampaignPatch struct {
	Name            *string `json:"name"`
	Purpose         *string `json:"purpose"`
	CallToAction    *string `json:"call_to_action"`
	Tone            *string `json:"tone"`
	MustInclude     *string `json:"must_include"`
	MustAvoid       *string `json:"must_avoid"`
	TargetWordCount *int    `json:"target_word_count"`
	SenderProfileID *int    `json:"sender_profile_id"`
	ReplyTo         *string `json:"reply_to"`
	SubjectGuidance *string `json:"subject_guidance"`
	Context         *string `json:"context"`
	ReferenceEmail  *string `json:"reference_email"`

	SendWindowStart *int `json:"send_window_start"`
	SendWindowEnd   *int `json:"send_window_end"`
	MinDelaySeconds *int `json:"min_delay_seconds"`
	MaxDelaySeconds *int `json:"max_delay_seconds"`
	DailySendLimit  *int `json:"daily_send_limit"`

	Status *string `json:"status"`
}

func (p *CampaignPatch) hasContentFields() bool {
	return p.Name != nil || p.Purpose != nil || p.CallToAction != nil || p.Tone != nil ||
		p.MustInclude != nil || p.MustAvoid != nil || p.TargetWordCount != nil ||
		p.SenderProfileID != nil || p.ReplyTo != nil || p.SubjectGuidance != nil ||
		p.Context != nil || p.ReferenceEmail != nil
}

func (s *CampaignService) CreateCampaign(c *model.Campaign) (*model.Campaign, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("campaign name is required")
	}
	if c.MinDelaySeconds < 0 || c.MaxDelaySeconds < c.MinDelaySeconds {
		return nil, fmt.Errorf("invalid delay bounds: min=%d max=%d", c.MinDelaySeconds, c.MaxDelaySeconds)
	}
	if c.SendWindowStart < 0 || c.SendWindowStart > 23 || c.SendWindowEnd < 0 || c.SendWindowEnd > 23 {
		return nil, fmt.Errorf("send window hours must be within 0..23")
	}
	c.Status = model.CampaignDraft
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetails(id int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	recipients, err := s.RecipientRepo.ListByCampaign(id, "")
	if err != nil {
		return nil, err
	}

	stats, err := s.CampaignRepo.GetStats(id)
	if err != nil {
		return nil, err
	}

	events, err := s.CampaignRepo.GetEvents(id)
	if err != nil {
		return nil, err
	}

	details := &CampaignDetails{
		Campaign:   campaign,
		Recipients: recipients,
		Events:     events,
		Stats:      stats,
	}

	if campaign.SenderProfileID != nil {
		sender, err := s.SenderRepo.GetByID(*campaign.SenderProfileID)
		if err != nil {
			return nil, err
		}
		details.Sender = sender
	}

	return details, nil
}

// UpdateCampaign applies a partial edit under the status gates: full edit
// in draft only, pacing fields once content exists, nothing at all while
// generating or completed. Status changes go through the transition graph.
func (s *CampaignService) UpdateCampaign(id int, patch *CampaignPatch) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !campaign.Editable() {
		return nil, appErrors.NewEditLocked(id, campaign.Status, "")
	}
	if campaign.PacingOnly() && patch.hasContentFields() {
		return nil, appErrors.NewEditLocked(id, campaign.Status, "content")
	}

	if patch.Status != nil && *patch.Status != campaign.Status {
		if err := s.checkStatusChange(campaign, *patch.Status); err != nil {
			return nil, err
		}
		campaign.Status = *patch.Status
	}

	applyPatch(campaign, patch)

	if campaign.MinDelaySeconds < 0 || campaign.MaxDelaySeconds < campaign.MinDelaySeconds {
		return nil, fmt.Errorf("invalid delay bounds: min=%d max=%d", campaign.MinDelaySeconds, campaign.MaxDelaySeconds)
	}

	if err := s.CampaignRepo.Update(campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// checkStatusChange validates a requested transition plus its entry
// conditions (approved-recipient counts for ready/sending, pending
// recipients for generating).
func (s *CampaignService) checkStatusChange(campaign *model.Campaign, to string) error {
	if !campaignCanTransition(campaign.Status, to) {
		return appErrors.NewInvalidTransition("campaign", campaign.Status, to)
	}

	switch to {
	case model.CampaignGenerating:
		pending, err := s.RecipientRepo.CountByStatus(campaign.ID, model.RecipientPending)
		if err != nil {
			return err
		}
		if pending == 0 {
			return fmt.Errorf("campaign %d has no pending recipients to generate", campaign.ID)
		}
		if campaign.SenderProfileID == nil || campaign.Purpose == "" {
			// Soft validation: warn but do not block.
			log.Printf("⚠️ campaign %d entering generation without sender profile or purpose", campaign.ID)
		}
	case model.CampaignReady, model.CampaignSending:
		approved, err := s.RecipientRepo.CountByStatus(campaign.ID, model.RecipientApproved)
		if err != nil {
			return err
		}
		if approved == 0 {
			return fmt.Errorf("campaign %d has no approved recipients", campaign.ID)
		}
	}
	return nil
}

// AddRecipients pairs contacts with the campaign. The unique index makes
// re-adding a contact a no-op, so the returned count is new rows only.
func (s *CampaignService) AddRecipients(campaignID int, contactIDs []int) (int, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return 0, err
	}
	if !campaign.Editable() {
		return 0, appErrors.NewEditLocked(campaignID, campaign.Status, "")
	}

	added := 0
	for _, contactID := range contactIDs {
		contact, err := s.ContactRepo.GetByID(contactID)
		if err != nil {
			return added, err
		}
		if contact == nil {
			log.Printf("⚠️ skipping unknown contact %d for campaign %d", contactID, campaignID)
			continue
		}
		rec, err := s.RecipientRepo.Create(campaignID, contactID)
		if err != nil {
			return added, err
		}
		if rec != nil {
			added++
		}
	}
	return added, nil
}

func applyPatch(c *model.Campaign, p *CampaignPatch) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Purpose != nil {
		c.Purpose = *p.Purpose
	}
	if p.CallToAction != nil {
		c.CallToAction = *p.CallToAction
	}
	if p.Tone != nil {
		c.Tone = *p.Tone
	}
	if p.MustInclude != nil {
		c.MustInclude = *p.MustInclude
	}
	if p.MustAvoid != nil {
		c.MustAvoid = *p.MustAvoid
	}
	if p.TargetWordCount != nil {
		c.TargetWordCount = *p.TargetWordCount
	}
	if p.SenderProfileID != nil {
		c.SenderProfileID = p.SenderProfileID
	}
	if p.ReplyTo != nil {
		c.ReplyTo = *p.ReplyTo
	}
	if p.SubjectGuidance != nil {
		c.SubjectGuidance = *p.SubjectGuidance
	}
	if p.Context != nil {
		c.Context = *p.Context
	}
	if p.ReferenceEmail != nil {
		c.ReferenceEmail = *p.ReferenceEmail
	}
	if p.SendWindowStart != nil {
		c.SendWindowStart = *p.SendWindowStart
	}
	if p.SendWindowEnd != nil {
		c.SendWindowEnd = *p.SendWindowEnd
	}
	if p.MinDelaySeconds != nil {
		c.MinDelaySeconds = *p.MinDelaySeconds
	}
	if p.MaxDelaySeconds != nil {
		c.MaxDelaySeconds = *p.MaxDelaySeconds
	}
	if p.DailySendLimit != nil {
		c.DailySendLimit = *p.DailySendLimit
	}
}
