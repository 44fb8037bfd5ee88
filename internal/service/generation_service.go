package service

import (
	"context"
	"log"

	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/model"
	"github.com/florawise/outreach-backend/internal/queue"
	"github.com/florawise/outreach-backend/internal/repository"
)

const defaultGenerateBatchSize = 10

// GenerationService runs batch content generation for a campaign's
// pending recipients, either inline per batch or by publishing jobs to
// the queue.
type GenerationService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	Review        *ReviewService
	Queue         queue.Queue
}

// GenerateResult reports batch progress back to the operator's loop.
type GenerateResult struct {
	Generated int    `json:"generated"`
	Errors    int    `json:"errors"`
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
	Status    string `json:"status"`
}

// GenerateBatch generates content for up to batchSize pending recipients
// inline. The first call moves the campaign into generating; when no
// pending recipients remain it returns to draft. Partial progress is
// always kept.
func (s *GenerationService) GenerateBatch(ctx context.Context, campaignID, batchSize int) (*GenerateResult, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignGenerating {
		return nil, appErrors.NewInvalidTransition("campaign", campaign.Status, model.CampaignGenerating)
	}

	if batchSize < 1 {
		batchSize = defaultGenerateBatchSize
	}

	if campaign.Status == model.CampaignDraft {
		if err := s.CampaignRepo.UpdateStatus(campaignID, model.CampaignGenerating); err != nil {
			return nil, err
		}
	}

	ids, err := s.RecipientRepo.ListPendingIDs(campaignID, batchSize)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{Status: model.CampaignGenerating}
	for _, id := range ids {
		if err := s.GenerateOne(ctx, id); err != nil {
			log.Printf("⚠️ failed to generate content for recipient %d: %v", id, err)
			result.Errors++
			continue
		}
		result.Generated++
	}

	return s.finishBatch(campaignID, result)
}

// GenerateAll drains every pending recipient in successive batches.
// If two consecutive batches make zero progress the loop aborts rather
// than spinning against a persistently failing backend.
func (s *GenerationService) GenerateAll(ctx context.Context, campaignID int) (*GenerateResult, error) {
	total := &GenerateResult{}
	zeroProgress := 0

	for {
		batch, err := s.GenerateBatch(ctx, campaignID, defaultGenerateBatchSize)
		if err != nil {
			return nil, err
		}
		total.Generated += batch.Generated
		total.Errors += batch.Errors
		total.Remaining = batch.Remaining
		total.Total = batch.Total
		total.Status = batch.Status

		if batch.Remaining == 0 {
			return total, nil
		}
		if batch.Generated == 0 {
			zeroProgress++
			if zeroProgress >= 2 {
				log.Printf("⚠️ aborting generation for campaign %d: two batches with zero progress", campaignID)
				return total, nil
			}
		} else {
			zeroProgress = 0
		}
	}
}

// EnqueueGeneration publishes one generation job per pending recipient.
// The subscriber (in-process or the worker binary) does the actual work.
func (s *GenerationService) EnqueueGeneration(campaignID int) (*GenerateResult, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignGenerating {
		return nil, appErrors.NewInvalidTransition("campaign", campaign.Status, model.CampaignGenerating)
	}

	ids, err := s.RecipientRepo.ListPendingIDs(campaignID, 1<<30)
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 && campaign.Status == model.CampaignDraft {
		if err := s.CampaignRepo.UpdateStatus(campaignID, model.CampaignGenerating); err != nil {
			return nil, err
		}
	}

	queued := 0
	for _, id := range ids {
		if err := s.Queue.Publish(queue.TopicGenerations, id); err != nil {
			log.Printf("⚠️ failed to enqueue generation for recipient %d: %v", id, err)
			continue
		}
		queued++
	}

	stats, err := s.CampaignRepo.GetStats(campaignID)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{
		Generated: queued,
		Remaining: stats["pending"],
		Total:     stats["total"],
		Status:    model.CampaignGenerating,
	}, nil
}

// GenerateOne generates content for a single pending recipient. Also the
// queue subscriber's handler, so it settles the campaign status when the
// last pending recipient of a generating campaign finishes.
func (s *GenerationService) GenerateOne(ctx context.Context, recipientID int) error {
	rec, err := s.RecipientRepo.GetByID(recipientID)
	if err != nil {
		return err
	}
	if rec == nil {
		// Deleted since enqueue; nothing to do.
		return nil
	}
	if rec.Status != model.RecipientPending {
		return nil
	}

	email, err := s.Review.generateFor(ctx, rec)
	if err != nil {
		return err
	}

	if err := s.RecipientRepo.UpdateContent(recipientID, email.Subject, email.Body, BodyToHTML(email.Body)); err != nil {
		return err
	}
	return s.RecipientRepo.UpdateStatus(recipientID, model.RecipientGenerated, false)
}

// CancelGeneration returns a generating campaign to draft. Recipients
// already generated in the batch keep their content.
func (s *GenerationService) CancelGeneration(campaignID int) error {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignGenerating {
		return appErrors.NewInvalidTransition("campaign", campaign.Status, model.CampaignDraft)
	}
	return s.CampaignRepo.UpdateStatus(campaignID, model.CampaignDraft)
}

// RetryFailed resets failed recipients to pending so a later generate
// pass picks them up again.
func (s *GenerationService) RetryFailed(campaignID int) (int, error) {
	recipients, err := s.RecipientRepo.ListByCampaign(campaignID, model.RecipientFailed)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, rec := range recipients {
		if err := s.RecipientRepo.UpdateStatus(rec.ID, model.RecipientPending, false); err != nil {
			return reset, err
		}
		reset++
	}
	return reset, nil
}

// finishBatch recomputes progress and settles the campaign status once
// nothing is left pending.
func (s *GenerationService) finishBatch(campaignID int, result *GenerateResult) (*GenerateResult, error) {
	stats, err := s.CampaignRepo.GetStats(campaignID)
	if err != nil {
		return nil, err
	}
	result.Remaining = stats["pending"]
	result.Total = stats["total"]

	if result.Remaining == 0 {
		if err := s.CampaignRepo.UpdateStatus(campaignID, model.CampaignDraft); err != nil {
			return nil, err
		}
		result.Status = model.CampaignDraft
	}
	return result, nil
}

// StartGenerationSubscriber wires GenerateOne as the handler for queued
// generation jobs.
func StartGenerationSubscriber(q queue.Queue, svc *GenerationService) {
	err := q.Subscribe(queue.TopicGenerations, func(recipientID int) error {
		log.Println("📩 Processing queued generation for recipient", recipientID)
		if err := svc.GenerateOne(context.Background(), recipientID); err != nil {
			return err
		}
		return svc.settleAfterJob(recipientID)
	})
	if err != nil {
		log.Println("⚠️ Failed to start subscriber for", queue.TopicGenerations, ":", err)
	}
}

// settleAfterJob flips a generating campaign back to draft when the job
// that just ran was its last pending recipient.
func (s *GenerationService) settleAfterJob(recipientID int) error {
	rec, err := s.RecipientRepo.GetByID(recipientID)
	if err != nil || rec == nil {
		return err
	}
	campaign, err := s.CampaignRepo.GetByID(rec.CampaignID)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignGenerating {
		return nil
	}
	pending, err := s.RecipientRepo.CountByStatus(rec.CampaignID, model.RecipientPending)
	if err != nil {
		return err
	}
	if pending == 0 {
		return s.CampaignRepo.UpdateStatus(rec.CampaignID, model.CampaignDraft)
	}
	return nil
}
