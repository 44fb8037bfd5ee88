package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/florawise/outreach-backend/internal/config"
	"github.com/florawise/outreach-backend/internal/controller"
	"github.com/florawise/outreach-backend/internal/db"
	"github.com/florawise/outreach-backend/internal/generation"
	"github.com/florawise/outreach-backend/internal/mailer"
	"github.com/florawise/outreach-backend/internal/middleware"
	"github.com/florawise/outreach-backend/internal/queue"
	"github.com/florawise/outreach-backend/internal/repository"
	"github.com/florawise/outreach-backend/internal/service"
)

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
	log.Println("✅ Connected to database")

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

	generationService := &service.GenerationService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		Review:        reviewService,
	}

	// Durable generation queue when a broker is reachable (cmd/worker
	// consumes it); in-process fallback otherwise.
	if rq, err := queue.NewRabbitQueue(cfg.AMQPURL); err == nil {
		defer rq.Close()
		generationService.Queue = rq
	} else {
		log.Println("⚠️ RabbitMQ unavailable, using in-memory generation queue:", err)
		q := queue.NewInMemoryQueue()
		generationService.Queue = q
		service.StartGenerationSubscriber(q, generationService)
	}

	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		ContactRepo:   contactRepo,
		SenderRepo:    senderRepo,
	}

	sendService := &service.SendService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		ContactRepo:   contactRepo,
		SenderRepo:    senderRepo,
		Mailer:        mailer.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
	}

	campaignController := &controller.CampaignController{
		CampaignService:   campaignService,
		GenerationService: generationService,
		SendService:       sendService,
	}
	recipientController := &controller.RecipientController{
		ReviewService: reviewService,
	}
	directoryController := &controller.DirectoryController{
		ContactRepo: contactRepo,
		SenderRepo:  senderRepo,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}))
	r.Use(middleware.Metrics)

	r.Get("/health", controller.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Patch("/campaigns/{id}", campaignController.UpdateCampaign)
	r.Post("/campaigns/{id}/recipients", campaignController.AddRecipients)
	r.Post("/campaigns/{id}/generate", campaignController.Generate)
	r.Post("/campaigns/{id}/generate/cancel", campaignController.CancelGeneration)
	r.Post("/campaigns/{id}/retry-failed", campaignController.RetryFailed)
	r.Post("/campaigns/{id}/send", campaignController.SendNext)
	r.Post("/campaigns/{id}/test-send", campaignController.TestSend)
	r.Patch("/campaigns/{id}/approve", recipientController.BulkApprove)
	r.Delete("/campaigns/{id}/recipients/bulk", recipientController.BulkDelete)
	r.Patch("/campaigns/{id}/recipients/{recipientID}", recipientController.UpdateRecipient)
	r.Post("/campaigns/{id}/recipients/{recipientID}/regenerate", recipientController.Regenerate)
	r.Delete("/campaigns/{id}/recipients/{recipientID}", recipientController.DeleteRecipient)

	// Directory routes
	r.Get("/contacts", directoryController.ListContacts)
	r.Post("/contacts", directoryController.CreateContact)
	r.Get("/sender-profiles", directoryController.ListSenderProfiles)
	r.Post("/sender-profiles", directoryController.CreateSenderProfile)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
