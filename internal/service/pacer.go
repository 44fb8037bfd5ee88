package service

import (
	"context"
	"log"
	"time"

	"github.com/florawise/outreach-backend/internal/model"
	"github.com/florawise/outreach-backend/internal/repository"
)

// skipRetryInterval is how long the pacer waits before rechecking a
// campaign that was skipped (window closed, daily cap hit, in-flight).
const skipRetryInterval = time.Minute

// Pacer is the server-side send loop: every tick it runs one send-next
// cycle for each sending campaign whose delay has elapsed, honoring the
// full recommended delay between sends. It replaces any client-driven
// loop; both paths share the same atomic claim so they cannot
// double-send.
type Pacer struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Send         *SendService
	Tick         time.Duration

	nextDue map[int]time.Time
}

func NewPacer(campaignRepo repository.CampaignRepositoryInterface, send *SendService, tick time.Duration) *Pacer {
	if tick <= 0 {
		tick = 5 * time.Second
	}
	return &Pacer{
		CampaignRepo: campaignRepo,
		Send:         send,
		Tick:         tick,
		nextDue:      make(map[int]time.Time),
	}
}

// Start blocks until ctx is cancelled.
func (p *Pacer) Start(ctx context.Context) {
	log.Println("🕒 Paced sender started")

	ticker := time.NewTicker(p.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Paced sender stopped")
			return
		case <-ticker.C:
			p.RunCycle()
		}
	}
}

// RunCycle performs at most one send per due campaign.
func (p *Pacer) RunCycle() {
	campaigns, _, err := p.CampaignRepo.ListCampaigns(0, 100, model.CampaignSending)
	if err != nil {
		log.Println("⚠️ Pacer failed to list sending campaigns:", err)
		return
	}

	now := time.Now()
	active := make(map[int]bool, len(campaigns))

	for _, campaign := range campaigns {
		active[campaign.ID] = true
		if due, ok := p.nextDue[campaign.ID]; ok && now.Before(due) {
			continue
		}

		result, err := p.Send.SendNext(campaign.ID)
		if err != nil {
			// Campaign stays in sending; back off one tick and retry.
			log.Printf("⚠️ Send cycle for campaign %d failed: %v", campaign.ID, err)
			p.nextDue[campaign.ID] = now.Add(p.Tick)
			continue
		}

		switch {
		case result.Completed:
			log.Printf("✅ Campaign %d completed", campaign.ID)
			delete(p.nextDue, campaign.ID)
		case result.Sent:
			delay := time.Duration(result.RecommendedDelaySeconds) * time.Second
			p.nextDue[campaign.ID] = now.Add(delay)
			log.Printf("📤 Sent to recipient %d (campaign %d), next send in %s",
				result.RecipientID, campaign.ID, delay)
		case result.Suppressed:
			// Move straight on to the next recipient.
			p.nextDue[campaign.ID] = now
		case result.Skipped:
			p.nextDue[campaign.ID] = now.Add(skipRetryInterval)
		default:
			// Delivery failure on one recipient; keep going.
			log.Printf("⚠️ Send to recipient %d (campaign %d) failed: %s",
				result.RecipientID, campaign.ID, result.Error)
			p.nextDue[campaign.ID] = now.Add(p.Tick)
		}
	}

	// Drop state for campaigns that left sending (paused, completed).
	for id := range p.nextDue {
		if !active[id] {
			delete(p.nextDue, id)
		}
	}
}
