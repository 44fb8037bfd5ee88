package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/mailer"
	"github.com/florawise/outreach-backend/internal/middleware"
	"github.com/florawise/outreach-backend/internal/model"
	"github.com/florawise/outreach-backend/internal/repository"
)

// Skip reasons returned on a paced skip.
const (
	SkipOutsideWindow = "outside_send_window"
	SkipDailyLimit    = "daily_limit_reached"
	SkipInFlight      = "sends_in_flight"
)

// Campaign timezone for send windows and daily caps.
const campaignTimezone = "America/New_York"

// SendService performs one send-next cycle: claim exactly one approved
// recipient, deliver it, and report pacing back to the caller.
type SendService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	ContactRepo   repository.ContactRepositoryInterface
	SenderRepo    repository.SenderProfileRepositoryInterface
	Mailer        mailer.Sender

	// Injected in tests; defaulted lazily.
	Now      func() time.Time
	Intn     func(n int) int
	Location *time.Location
}

// SendNextResult mirrors the send endpoint's response contract.
type SendNextResult struct {
	Completed               bool   `json:"completed"`
	Skipped                 bool   `json:"skipped"`
	SkipReason              string `json:"skip_reason,omitempty"`
	Sent                    bool   `json:"sent"`
	RecipientID             int    `json:"recipient_id,omitempty"`
	RecipientName           string `json:"recipient_name,omitempty"`
	RecommendedDelaySeconds int    `json:"recommended_delay_seconds,omitempty"`
	Suppressed              bool   `json:"suppressed,omitempty"`
	AttemptID               string `json:"attempt_id,omitempty"`
	Error                   string `json:"error,omitempty"`
}

func (s *SendService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SendService) intn(n int) int {
	if s.Intn != nil {
		return s.Intn(n)
	}
	return rand.Intn(n)
}

func (s *SendService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	loc, err := time.LoadLocation(campaignTimezone)
	if err != nil {
		return time.UTC
	}
	s.Location = loc
	return loc
}

// windowOpen reports whether now falls inside the campaign's send
// window. Start == end disables the window; start > end wraps overnight.
func windowOpen(c *model.Campaign, now time.Time) bool {
	if c.SendWindowStart == c.SendWindowEnd {
		return true
	}
	hour := now.Hour()
	if c.SendWindowStart < c.SendWindowEnd {
		return hour >= c.SendWindowStart && hour < c.SendWindowEnd
	}
	return hour >= c.SendWindowStart || hour < c.SendWindowEnd
}

// RecommendedDelay draws a uniform random delay in [min, max] seconds.
func (s *SendService) RecommendedDelay(c *model.Campaign) int {
	min := c.MinDelaySeconds
	max := c.MaxDelaySeconds
	if min < 0 {
		min = 0
	}
	if max <= min {
		return min
	}
	return min + s.intn(max-min+1)
}

// SendNext runs one iteration of the send loop for a sending campaign.
func (s *SendService) SendNext(campaignID int) (*SendNextResult, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignSending {
		return nil, appErrors.NewInvalidTransition("campaign", campaign.Status, model.CampaignSending)
	}

	now := s.now().In(s.location())

	if !windowOpen(campaign, now) {
		middleware.RecordSendSkipped(SkipOutsideWindow)
		return &SendNextResult{Skipped: true, SkipReason: SkipOutsideWindow}, nil
	}

	// The claim checks the daily cap inside its own transaction so two
	// concurrent callers cannot each see cap-1 and both claim.
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location())
	rec, sentToday, err := s.RecipientRepo.ClaimNextApproved(campaignID, dayStart, dayStart.AddDate(0, 0, 1), campaign.DailySendLimit)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		if campaign.DailySendLimit > 0 && sentToday >= campaign.DailySendLimit {
			middleware.RecordSendSkipped(SkipDailyLimit)
			return &SendNextResult{Skipped: true, SkipReason: SkipDailyLimit}, nil
		}
		// Nothing left to claim. Completed only once nothing is in
		// flight either (another caller may hold a queued recipient).
		inFlight, err := s.RecipientRepo.CountByStatus(campaignID, model.RecipientQueued)
		if err != nil {
			return nil, err
		}
		if inFlight > 0 {
			middleware.RecordSendSkipped(SkipInFlight)
			return &SendNextResult{Skipped: true, SkipReason: SkipInFlight}, nil
		}
		if err := s.CampaignRepo.UpdateStatus(campaignID, model.CampaignCompleted); err != nil {
			return nil, err
		}
		return &SendNextResult{Completed: true}, nil
	}

	msg, contactName, err := s.buildMessage(campaign, rec)
	if err != nil {
		// Configuration problem, not a delivery failure: release the
		// claim so the recipient stays send-eligible.
		if uerr := s.RecipientRepo.UpdateStatus(rec.ID, model.RecipientApproved, true); uerr != nil {
			return nil, uerr
		}
		return &SendNextResult{Error: err.Error()}, nil
	}

	// Policy check at send time: a syntactically invalid address is
	// suppressed rather than attempted, and the loop moves on.
	if !govalidator.IsEmail(msg.ToEmail) {
		if err := s.RecipientRepo.SetSuppressed(rec.ID, "invalid email address: "+msg.ToEmail); err != nil {
			return nil, err
		}
		middleware.RecordSuppression()
		return &SendNextResult{Suppressed: true, RecipientID: rec.ID, RecipientName: contactName}, nil
	}

	attemptID := uuid.NewString()

	if err := s.Mailer.Send(*msg); err != nil {
		middleware.RecordSendFailure()
		if uerr := s.RecipientRepo.MarkSendFailed(rec.ID, err.Error()); uerr != nil {
			return nil, uerr
		}
		return &SendNextResult{Error: err.Error(), RecipientID: rec.ID, AttemptID: attemptID}, nil
	}

	if err := s.RecipientRepo.MarkSent(rec.ID, now); err != nil {
		return nil, err
	}
	middleware.RecordEmailSent()

	return &SendNextResult{
		Sent:                    true,
		RecipientID:             rec.ID,
		RecipientName:           contactName,
		RecommendedDelaySeconds: s.RecommendedDelay(campaign),
		AttemptID:               attemptID,
	}, nil
}

// TestSend delivers an out-of-band test email for one recipient to an
// arbitrary address. Subject is prefixed [TEST]; no status, sent_at or
// counter is touched regardless of outcome.
func (s *SendService) TestSend(campaignID, recipientID int, sendTo string) error {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}

	rec, err := s.RecipientRepo.GetByID(recipientID)
	if err != nil {
		return err
	}
	if rec == nil || rec.CampaignID != campaignID {
		return appErrors.NewRecipientNotFound(recipientID)
	}
	if !rec.HasContent() {
		return fmt.Errorf("recipient %d has no generated content to test-send", recipientID)
	}

	msg, _, err := s.buildMessage(campaign, rec)
	if err != nil {
		return err
	}
	msg.ToEmail = sendTo
	msg.ToName = ""
	msg.Subject = "[TEST] " + msg.Subject

	return s.Mailer.Send(*msg)
}

// buildMessage resolves contact and sender profile into a mailer message.
func (s *SendService) buildMessage(campaign *model.Campaign, rec *model.Recipient) (*mailer.Message, string, error) {
	if campaign.SenderProfileID == nil {
		return nil, "", fmt.Errorf("campaign %d has no sender profile", campaign.ID)
	}
	sender, err := s.SenderRepo.GetByID(*campaign.SenderProfileID)
	if err != nil {
		return nil, "", err
	}
	if sender == nil {
		return nil, "", fmt.Errorf("sender profile %d not found", *campaign.SenderProfileID)
	}

	contact, err := s.ContactRepo.GetByID(rec.ContactID)
	if err != nil {
		return nil, "", err
	}
	if contact == nil {
		return nil, "", fmt.Errorf("contact %d not found", rec.ContactID)
	}

	replyTo := sender.ReplyTo
	if campaign.ReplyTo != "" {
		replyTo = campaign.ReplyTo
	}

	return &mailer.Message{
		FromName:  sender.FromName,
		FromEmail: sender.FromEmail,
		ReplyTo:   replyTo,
		ToName:    contact.FullName(),
		ToEmail:   contact.Email,
		Subject:   rec.Subject,
		TextBody:  rec.Body,
		HTMLBody:  rec.BodyHTML,
	}, contact.FullName(), nil
}
