package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/florawise/outreach-backend/internal/controller"
	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/mailer"
	"github.com/florawise/outreach-backend/internal/model"
	"github.com/florawise/outreach-backend/internal/service"
)

// --- Mock repositories ---

type MockCampaignRepo struct {
	campaigns map[int]*model.Campaign
}

func (m *MockCampaignRepo) Create(c *model.Campaign) error {
	c.ID = len(m.campaigns) + 1
	m.campaigns[c.ID] = c
	return nil
}

func (m *MockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (m *MockCampaignRepo) Update(c *model.Campaign) error {
	m.campaigns[c.ID] = c
	return nil
}

func (m *MockCampaignRepo) UpdateStatus(campaignID int, status string) error {
	if c, ok := m.campaigns[campaignID]; ok {
		c.Status = status
	}
	return nil
}

func (m *MockCampaignRepo) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	var out []*model.Campaign
	for _, c := range m.campaigns {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (m *MockCampaignRepo) GetStats(campaignID int) (map[string]int, error) {
	return map[string]int{"total": 0}, nil
}

func (m *MockCampaignRepo) GetEvents(campaignID int) ([]model.Event, error) {
	return []model.Event{}, nil
}

type MockRecipientRepo struct {
	recipients map[int]*model.Recipient
}

func (m *MockRecipientRepo) Create(campaignID, contactID int) (*model.Recipient, error) {
	rec := &model.Recipient{
		ID: len(m.recipients) + 100, CampaignID: campaignID, ContactID: contactID,
		Status: model.RecipientPending, CreatedAt: time.Now(),
	}
	m.recipients[rec.ID] = rec
	return rec, nil
}

func (m *MockRecipientRepo) GetByID(id int) (*model.Recipient, error) {
	return m.recipients[id], nil
}

func (m *MockRecipientRepo) GetByCampaignAndContact(campaignID, contactID int) (*model.Recipient, error) {
	return nil, nil
}

func (m *MockRecipientRepo) ListByCampaign(campaignID int, status string) ([]model.Recipient, error) {
	var out []model.Recipient
	for _, rec := range m.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (m *MockRecipientRepo) ListPendingIDs(campaignID, limit int) ([]int, error) {
	return []int{}, nil
}

func (m *MockRecipientRepo) CountByStatus(campaignID int, statuses ...string) (int, error) {
	count := 0
	for _, rec := range m.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		for _, st := range statuses {
			if rec.Status == st {
				count++
				break
			}
		}
	}
	return count, nil
}

func (m *MockRecipientRepo) UpdateContent(id int, subject, body, bodyHTML string) error {
	if rec, ok := m.recipients[id]; ok {
		rec.Subject, rec.Body, rec.BodyHTML = subject, body, bodyHTML
	}
	return nil
}

func (m *MockRecipientRepo) UpdateStatus(id int, status string, approved bool) error {
	if rec, ok := m.recipients[id]; ok {
		rec.Status, rec.Approved = status, approved
	}
	return nil
}

func (m *MockRecipientRepo) SetSuppressed(id int, reason string) error {
	if rec, ok := m.recipients[id]; ok {
		rec.Status, rec.Approved, rec.SuppressionReason = model.RecipientSuppressed, false, reason
	}
	return nil
}

func (m *MockRecipientRepo) ClearSuppression(id int) error {
	if rec, ok := m.recipients[id]; ok {
		rec.Status, rec.Approved, rec.SuppressionReason = model.RecipientApproved, true, ""
	}
	return nil
}

func (m *MockRecipientRepo) Delete(id int) error {
	delete(m.recipients, id)
	return nil
}

func (m *MockRecipientRepo) BulkDelete(campaignID int, ids []int) (int, error) {
	deleted := 0
	for _, id := range ids {
		if rec, ok := m.recipients[id]; ok && rec.Deletable() {
			delete(m.recipients, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockRecipientRepo) BulkApprove(campaignID int, ids []int) (int, error) {
	updated := 0
	for _, id := range ids {
		if rec, ok := m.recipients[id]; ok && rec.Status == model.RecipientGenerated {
			rec.Status, rec.Approved = model.RecipientApproved, true
			updated++
		}
	}
	return updated, nil
}

func (m *MockRecipientRepo) ClaimNextApproved(campaignID int, dayStart, dayEnd time.Time, dailyLimit int) (*model.Recipient, int, error) {
	sentToday := 0
	for _, rec := range m.recipients {
		if rec.CampaignID != campaignID || rec.SentAt == nil {
			continue
		}
		if !rec.SentAt.Before(dayStart) && rec.SentAt.Before(dayEnd) {
			sentToday++
		}
	}
	if dailyLimit > 0 && sentToday >= dailyLimit {
		return nil, sentToday, nil
	}
	for _, rec := range m.recipients {
		if rec.CampaignID == campaignID && rec.Status == model.RecipientApproved {
			rec.Status, rec.Approved = model.RecipientQueued, false
			return rec, sentToday, nil
		}
	}
	return nil, sentToday, nil
}

func (m *MockRecipientRepo) MarkSent(id int, sentAt time.Time) error {
	if rec, ok := m.recipients[id]; ok {
		rec.Status, rec.Approved = model.RecipientSent, false
		t := sentAt
		rec.SentAt = &t
	}
	return nil
}

func (m *MockRecipientRepo) MarkSendFailed(id int, lastError string) error {
	if rec, ok := m.recipients[id]; ok {
		rec.Status, rec.LastError = model.RecipientFailed, lastError
	}
	return nil
}

type MockContactRepo struct{}

func (m *MockContactRepo) GetByID(id int) (*model.Contact, error) {
	return &model.Contact{ID: id, FirstName: "Maya", LastName: "Fernandez", Email: "maya@example.com"}, nil
}
func (m *MockContactRepo) GetByEmail(email string) (*model.Contact, error) { return nil, nil }
func (m *MockContactRepo) ListAll() ([]model.Contact, error)              { return []model.Contact{}, nil }
func (m *MockContactRepo) Create(c *model.Contact) error                  { return nil }

type MockSenderRepo struct{}

func (m *MockSenderRepo) GetByID(id int) (*model.SenderProfile, error) {
	return &model.SenderProfile{ID: id, FromName: "Avery", FromEmail: "avery@florawise.com"}, nil
}
func (m *MockSenderRepo) ListAll() ([]model.SenderProfile, error) {
	return []model.SenderProfile{}, nil
}
func (m *MockSenderRepo) Create(p *model.SenderProfile) error { return nil }

type MockMailer struct{ sent []mailer.Message }

func (m *MockMailer) Send(msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

// --- Harness ---

type testEnv struct {
	campaigns  *MockCampaignRepo
	recipients *MockRecipientRepo
	router     *chi.Mux
	mailer     *MockMailer
}

func newTestEnv() *testEnv {
	campaigns := &MockCampaignRepo{campaigns: map[int]*model.Campaign{}}
	recipients := &MockRecipientRepo{recipients: map[int]*model.Recipient{}}
	contacts := &MockContactRepo{}
	senders := &MockSenderRepo{}
	m := &MockMailer{}

	campaignService := &service.CampaignService{
		CampaignRepo: campaigns, RecipientRepo: recipients,
		ContactRepo: contacts, SenderRepo: senders,
	}
	reviewService := &service.ReviewService{
		CampaignRepo: campaigns, RecipientRepo: recipients,
		ContactRepo: contacts, SenderRepo: senders,
	}
	sendService := &service.SendService{
		CampaignRepo: campaigns, RecipientRepo: recipients,
		ContactRepo: contacts, SenderRepo: senders,
		Mailer:   m,
		Now:      func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
		Intn:     func(n int) int { return 0 },
		Location: time.UTC,
	}
	generationService := &service.GenerationService{
		CampaignRepo: campaigns, RecipientRepo: recipients, Review: reviewService,
	}

	campaignCtrl := &controller.CampaignController{
		CampaignService:   campaignService,
		GenerationService: generationService,
		SendService:       sendService,
	}
	recipientCtrl := &controller.RecipientController{ReviewService: reviewService}

	// Mirrors the route shapes wired in cmd/server.
	r := chi.NewRouter()
	r.Post("/campaigns", campaignCtrl.CreateCampaign)
	r.Get("/campaigns", campaignCtrl.ListCampaigns)
	r.Get("/campaigns/{id}", campaignCtrl.GetCampaign)
	r.Patch("/campaigns/{id}", campaignCtrl.UpdateCampaign)
	r.Post("/campaigns/{id}/send", campaignCtrl.SendNext)
	r.Post("/campaigns/{id}/test-send", campaignCtrl.TestSend)
	r.Patch("/campaigns/{id}/approve", recipientCtrl.BulkApprove)
	r.Delete("/campaigns/{id}/recipients/bulk", recipientCtrl.BulkDelete)
	r.Patch("/campaigns/{id}/recipients/{recipientID}", recipientCtrl.UpdateRecipient)
	r.Delete("/campaigns/{id}/recipients/{recipientID}", recipientCtrl.DeleteRecipient)

	return &testEnv{campaigns: campaigns, recipients: recipients, router: r, mailer: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestCreateCampaignEndpoint(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, "POST", "/campaigns", map[string]interface{}{
		"name": "Spring outreach", "purpose": "intro",
		"min_delay_seconds": 30, "max_delay_seconds": 90,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created model.Campaign
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != model.CampaignDraft {
		t.Errorf("expected draft, got %q", created.Status)
	}

	w = env.do(t, "POST", "/campaigns", map[string]interface{}{
		"name": "Bad", "min_delay_seconds": 90, "max_delay_seconds": 30,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad delays, got %d", w.Code)
	}
}

func TestUpdateCampaignEditLockReturns403(t *testing.T) {
	env := newTestEnv()
	env.campaigns.campaigns[1] = &model.Campaign{ID: 1, Name: "Live", Status: model.CampaignSending}

	w := env.do(t, "PATCH", "/campaigns/1", map[string]interface{}{"purpose": "changed"})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a locked content edit, got %d: %s", w.Code, w.Body.String())
	}

	// Pacing edits still pass.
	w = env.do(t, "PATCH", "/campaigns/1", map[string]interface{}{"daily_send_limit": 25})
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for a pacing edit, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateCampaignInvalidTransitionReturns409(t *testing.T) {
	env := newTestEnv()
	env.campaigns.campaigns[1] = &model.Campaign{ID: 1, Name: "Draft", Status: model.CampaignDraft}

	w := env.do(t, "PATCH", "/campaigns/1", map[string]interface{}{"status": "sending"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for draft -> sending, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetCampaignNotFoundReturns404(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, "GET", "/campaigns/42", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSendNextEndpoint(t *testing.T) {
	env := newTestEnv()
	senderID := 1
	env.campaigns.campaigns[1] = &model.Campaign{
		ID: 1, Name: "Live", Status: model.CampaignSending,
		SenderProfileID: &senderID, MinDelaySeconds: 30, MaxDelaySeconds: 90,
	}
	env.recipients.recipients[100] = &model.Recipient{
		ID: 100, CampaignID: 1, ContactID: 1,
		Status: model.RecipientApproved, Approved: true,
		Subject: "Hello", Body: "Hi there", BodyHTML: "<p>Hi there</p>",
	}

	w := env.do(t, "POST", "/campaigns/1/send", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result service.SendNextResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Sent || result.RecipientID != 100 {
		t.Errorf("expected a send of recipient 100, got %+v", result)
	}
	if result.RecommendedDelaySeconds < 30 || result.RecommendedDelaySeconds > 90 {
		t.Errorf("delay out of bounds: %d", result.RecommendedDelaySeconds)
	}
	if len(env.mailer.sent) != 1 {
		t.Errorf("expected one delivery, got %d", len(env.mailer.sent))
	}

	// Drained on the next call.
	w = env.do(t, "POST", "/campaigns/1/send", nil)
	var second service.SendNextResult
	json.NewDecoder(w.Body).Decode(&second)
	if !second.Completed {
		t.Errorf("expected completion, got %+v", second)
	}
}

func TestSendNextRejectsNonSendingCampaign(t *testing.T) {
	env := newTestEnv()
	env.campaigns.campaigns[1] = &model.Campaign{ID: 1, Name: "Draft", Status: model.CampaignDraft}

	w := env.do(t, "POST", "/campaigns/1/send", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTestSendValidatesAddress(t *testing.T) {
	env := newTestEnv()
	env.campaigns.campaigns[1] = &model.Campaign{ID: 1, Name: "Live", Status: model.CampaignReady}

	w := env.do(t, "POST", "/campaigns/1/test-send", map[string]interface{}{
		"recipientId": 100, "sendTo": "not-an-address",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an invalid address, got %d", w.Code)
	}
}
