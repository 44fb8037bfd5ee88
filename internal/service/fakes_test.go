package service_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/generation"
	"github.com/florawise/outreach-backend/internal/mailer"
	"github.com/florawise/outreach-backend/internal/model"
)

// In-memory store shared by the fake repositories so service tests can
// exercise full flows without a database.
type store struct {
	campaigns  map[int]*model.Campaign
	recipients map[int]*model.Recipient
	contacts   map[int]*model.Contact
	senders    map[int]*model.SenderProfile
	events     []model.Event
	nextID     int
}

func newStore() *store {
	return &store{
		campaigns:  map[int]*model.Campaign{},
		recipients: map[int]*model.Recipient{},
		contacts:   map[int]*model.Contact{},
		senders:    map[int]*model.SenderProfile{},
		nextID:     1,
	}
}

func (s *store) id() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *store) addCampaign(c *model.Campaign) *model.Campaign {
	c.ID = s.id()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	c.CreatedAt = time.Now()
	s.campaigns[c.ID] = c
	return c
}

func (s *store) addContact(c *model.Contact) *model.Contact {
	c.ID = s.id()
	s.contacts[c.ID] = c
	return c
}

func (s *store) addSender(p *model.SenderProfile) *model.SenderProfile {
	p.ID = s.id()
	s.senders[p.ID] = p
	return p
}

func (s *store) addRecipient(rec *model.Recipient) *model.Recipient {
	rec.ID = s.id()
	if rec.Status == "" {
		rec.Status = model.RecipientPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.recipients[rec.ID] = rec
	return rec
}

// --- Campaign repository ---

type fakeCampaignRepo struct{ s *store }

func (f *fakeCampaignRepo) Create(c *model.Campaign) error {
	f.s.addCampaign(c)
	return nil
}

func (f *fakeCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	c, ok := f.s.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (f *fakeCampaignRepo) Update(c *model.Campaign) error {
	if _, ok := f.s.campaigns[c.ID]; !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	f.s.campaigns[c.ID] = c
	return nil
}

func (f *fakeCampaignRepo) UpdateStatus(campaignID int, status string) error {
	c, ok := f.s.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.Status = status
	return nil
}

func (f *fakeCampaignRepo) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	var all []*model.Campaign
	for _, c := range f.s.campaigns {
		if status != "" && c.Status != status {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := len(all)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeCampaignRepo) GetStats(campaignID int) (map[string]int, error) {
	stats := map[string]int{"total": 0}
	for _, rec := range f.s.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		stats[rec.Status]++
		stats["total"]++
	}
	return stats, nil
}

func (f *fakeCampaignRepo) GetEvents(campaignID int) ([]model.Event, error) {
	return f.s.events, nil
}

// --- Recipient repository ---

type fakeRecipientRepo struct{ s *store }

func (f *fakeRecipientRepo) Create(campaignID, contactID int) (*model.Recipient, error) {
	if existing, _ := f.GetByCampaignAndContact(campaignID, contactID); existing != nil {
		return existing, nil
	}
	return f.s.addRecipient(&model.Recipient{
		CampaignID: campaignID,
		ContactID:  contactID,
		Status:     model.RecipientPending,
	}), nil
}

func (f *fakeRecipientRepo) GetByID(id int) (*model.Recipient, error) {
	return f.s.recipients[id], nil
}

func (f *fakeRecipientRepo) GetByCampaignAndContact(campaignID, contactID int) (*model.Recipient, error) {
	for _, rec := range f.s.recipients {
		if rec.CampaignID == campaignID && rec.ContactID == contactID {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeRecipientRepo) ListByCampaign(campaignID int, status string) ([]model.Recipient, error) {
	var out []model.Recipient
	for _, rec := range f.s.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRecipientRepo) ListPendingIDs(campaignID, limit int) ([]int, error) {
	var ids []int
	for _, rec := range f.s.recipients {
		if rec.CampaignID == campaignID && rec.Status == model.RecipientPending {
			ids = append(ids, rec.ID)
		}
	}
	sort.Ints(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeRecipientRepo) CountByStatus(campaignID int, statuses ...string) (int, error) {
	count := 0
	for _, rec := range f.s.recipients {
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

func (f *fakeRecipientRepo) UpdateContent(id int, subject, body, bodyHTML string) error {
	rec, ok := f.s.recipients[id]
	if !ok {
		return fmt.Errorf("recipient %d not in store", id)
	}
	rec.Subject = subject
	rec.Body = body
	rec.BodyHTML = bodyHTML
	return nil
}

func (f *fakeRecipientRepo) UpdateStatus(id int, status string, approved bool) error {
	rec, ok := f.s.recipients[id]
	if !ok {
		return fmt.Errorf("recipient %d not in store", id)
	}
	rec.Status = status
	rec.Approved = approved
	return nil
}

func (f *fakeRecipientRepo) SetSuppressed(id int, reason string) error {
	rec, ok := f.s.recipients[id]
	if !ok {
		return fmt.Errorf("recipient %d not in store", id)
	}
	rec.Status = model.RecipientSuppressed
	rec.Approved = false
	rec.SuppressionReason = reason
	return nil
}

func (f *fakeRecipientRepo) ClearSuppression(id int) error {
	rec, ok := f.s.recipients[id]
	if !ok || rec.Status != model.RecipientSuppressed {
		return nil
	}
	rec.Status = model.RecipientApproved
	rec.Approved = true
	rec.SuppressionReason = ""
	return nil
}

func (f *fakeRecipientRepo) Delete(id int) error {
	delete(f.s.recipients, id)
	return nil
}

func (f *fakeRecipientRepo) BulkDelete(campaignID int, ids []int) (int, error) {
	deleted := 0
	for _, id := range ids {
		rec, ok := f.s.recipients[id]
		if !ok || rec.CampaignID != campaignID || !rec.Deletable() {
			continue
		}
		delete(f.s.recipients, id)
		deleted++
	}
	return deleted, nil
}

func (f *fakeRecipientRepo) BulkApprove(campaignID int, ids []int) (int, error) {
	updated := 0
	for _, id := range ids {
		rec, ok := f.s.recipients[id]
		if !ok || rec.CampaignID != campaignID || rec.Status != model.RecipientGenerated {
			continue
		}
		rec.Status = model.RecipientApproved
		rec.Approved = true
		updated++
	}
	return updated, nil
}

// ClaimNextApproved mirrors the SQL claim: checks the daily cap, then
// flips the oldest approved recipient to queued.
func (f *fakeRecipientRepo) ClaimNextApproved(campaignID int, dayStart, dayEnd time.Time, dailyLimit int) (*model.Recipient, int, error) {
	sentToday := 0
	for _, rec := range f.s.recipients {
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

	var candidates []*model.Recipient
	for _, rec := range f.s.recipients {
		if rec.CampaignID == campaignID && rec.Status == model.RecipientApproved {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return nil, sentToday, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	claimed := candidates[0]
	claimed.Status = model.RecipientQueued
	claimed.Approved = false
	return claimed, sentToday, nil
}

func (f *fakeRecipientRepo) MarkSent(id int, sentAt time.Time) error {
	rec, ok := f.s.recipients[id]
	if !ok {
		return fmt.Errorf("recipient %d not in store", id)
	}
	rec.Status = model.RecipientSent
	rec.Approved = false
	rec.LastError = ""
	if rec.SentAt == nil {
		t := sentAt
		rec.SentAt = &t
	}
	return nil
}

func (f *fakeRecipientRepo) MarkSendFailed(id int, lastError string) error {
	rec, ok := f.s.recipients[id]
	if !ok {
		return fmt.Errorf("recipient %d not in store", id)
	}
	rec.Status = model.RecipientFailed
	rec.Approved = false
	rec.LastError = lastError
	return nil
}

// --- Contact & sender profile repositories ---

type fakeContactRepo struct{ s *store }

func (f *fakeContactRepo) GetByID(id int) (*model.Contact, error) {
	return f.s.contacts[id], nil
}

func (f *fakeContactRepo) GetByEmail(email string) (*model.Contact, error) {
	for _, c := range f.s.contacts {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeContactRepo) ListAll() ([]model.Contact, error) {
	var out []model.Contact
	for _, c := range f.s.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeContactRepo) Create(c *model.Contact) error {
	f.s.addContact(c)
	return nil
}

type fakeSenderRepo struct{ s *store }

func (f *fakeSenderRepo) GetByID(id int) (*model.SenderProfile, error) {
	return f.s.senders[id], nil
}

func (f *fakeSenderRepo) ListAll() ([]model.SenderProfile, error) {
	var out []model.SenderProfile
	for _, p := range f.s.senders {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeSenderRepo) Create(p *model.SenderProfile) error {
	f.s.addSender(p)
	return nil
}

// --- Mailer & generator fakes ---

type fakeMailer struct {
	sent     []mailer.Message
	failWith error
}

func (m *fakeMailer) Send(msg mailer.Message) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeGenerator struct {
	calls    int
	failWith error
}

func (g *fakeGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Email, error) {
	g.calls++
	if g.failWith != nil {
		return nil, g.failWith
	}
	return &generation.Email{
		Subject: fmt.Sprintf("Hello %s", req.Contact.FullName()),
		Body:    fmt.Sprintf("Hi %s,\n\nDraft %d.", req.Contact.FirstName, g.calls),
	}, nil
}
