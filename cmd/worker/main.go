package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/florawise/outreach-backend/internal/config"
	"github.com/florawise/outreach-backend/internal/db"
	"github.com/florawise/outreach-backend/internal/generation"
	"github.com/florawise/outreach-backend/internal/mailer"
	"github.com/florawise/outreach-backend/internal/queue"
	"github.com/florawise/outreach-backend/internal/repository"
	"github.com/florawise/outreach-backend/internal/service"
)

// The worker owns the durable half of the system: it consumes queued
// generation jobs from RabbitMQ and runs the paced send loop, so pacing
// survives without any browser tab or API client staying connected.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	recipientRepo := &repository.RecipientRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	senderRepo := &repository.SenderProfileRepository{DB: conn}

	var generator generation.Generator
	if cfg.AnthropicAPIKey != "" {
		generator = generation.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	} else {
		log.Println("⚠️ No ANTHROPIC_API_KEY set, using stub generator")
		generator = generation.StubGenerator{}
	}

	reviewService := &service.ReviewService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		ContactRepo:   contactRepo,
		SenderRepo:    senderRepo,
		Generator:     generator,
	}

	rq, err := queue.NewRabbitQueue(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer rq.Close()

	generationService := &service.GenerationService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		Review:        reviewService,
		Queue:         rq,
	}
	service.StartGenerationSubscriber(rq, generationService)

	sendService := &service.SendService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		ContactRepo:   contactRepo,
		SenderRepo:    senderRepo,
		Mailer:        mailer.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
	}

	pacer := service.NewPacer(campaignRepo, sendService, time.Duration(cfg.SendTickSeconds)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go pacer.Start(ctx)

	log.Println("Worker running, waiting for jobs...")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutdown signal received, stopping worker")
	cancel()
}
