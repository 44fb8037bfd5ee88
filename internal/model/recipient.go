package model

import "time"

// Recipient statuses. Core lifecycle is pending -> generated -> approved
// -> queued -> sent, with bounced/failed/suppressed as off-ramps and
// delivered/opened/clicked as post-send progressions.
const (
	RecipientPending    = "pending"
	RecipientGenerated  = "generated"
	RecipientApproved   = "approved"
	RecipientQueued     = "queued"
	RecipientSent       = "sent"
	RecipientDelivered  = "delivered"
	RecipientOpened     = "opened"
	RecipientClicked    = "clicked"
	RecipientBounced    = "bounced"
	RecipientFailed     = "failed"
	RecipientSuppressed = "suppressed"
)

// Recipient is one (campaign, contact) pair and its generated email
// content. Exactly one row exists per pair (unique index).
type Recipient struct {
	ID                int        `db:"id" json:"id"`
	CampaignID        int        `db:"campaign_id" json:"campaign_id"`
	ContactID         int        `db:"contact_id" json:"contact_id"`
	Subject           string     `db:"subject" json:"subject"`
	Body              string     `db:"body" json:"body"`
	BodyHTML          string     `db:"body_html" json:"body_html"`
	Status            string     `db:"status" json:"status"`
	Approved          bool       `db:"approved" json:"approved"`
	SuppressionReason string     `db:"suppression_reason" json:"suppression_reason,omitempty"`
	LastError         string     `db:"last_error" json:"last_error,omitempty"`
	SentAt            *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`

	// Joined for detail/review responses.
	ContactName  string `db:"-" json:"contact_name,omitempty"`
	ContactEmail string `db:"-" json:"contact_email,omitempty"`
	CompanyName  string `db:"-" json:"company_name,omitempty"`
}

// HasContent reports whether generation has produced a body.
func (r *Recipient) HasContent() bool {
	return r.Body != ""
}

// Deletable statuses: never once sent or in flight.
func (r *Recipient) Deletable() bool {
	return r.Status == RecipientPending || r.Status == RecipientGenerated || r.Status == RecipientFailed
}
