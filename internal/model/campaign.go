package model

import "time"

// Campaign statuses. Transitions are validated in the service layer.
const (
	CampaignDraft      = "draft"
	CampaignGenerating = "generating"
	CampaignReady      = "ready"
	CampaignSending    = "sending"
	CampaignPaused     = "paused"
	CampaignCompleted  = "completed"
)

type Campaign struct {
	ID              int    `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	Purpose         string `db:"purpose" json:"purpose"`
	CallToAction    string `db:"call_to_action" json:"call_to_action"`
	Tone            string `db:"tone" json:"tone"`
	MustInclude     string `db:"must_include" json:"must_include"`
	MustAvoid       string `db:"must_avoid" json:"must_avoid"`
	TargetWordCount int    `db:"target_word_count" json:"target_word_count"`
	SenderProfileID *int   `db:"sender_profile_id" json:"sender_profile_id,omitempty"`
	ReplyTo         string `db:"reply_to" json:"reply_to"`
	SubjectGuidance string `db:"subject_guidance" json:"subject_guidance"`
	Context         string `db:"context" json:"context"`
	ReferenceEmail  string `db:"reference_email" json:"reference_email"`

	// Pacing configuration. Window hours are hours-of-day in the campaign
	// timezone (America/New_York). Start == End means no window restriction.
	SendWindowStart int `db:"send_window_start" json:"send_window_start"`
	SendWindowEnd   int `db:"send_window_end" json:"send_window_end"`
	MinDelaySeconds int `db:"min_delay_seconds" json:"min_delay_seconds"`
	MaxDelaySeconds int `db:"max_delay_seconds" json:"max_delay_seconds"`
	DailySendLimit  int `db:"daily_send_limit" json:"daily_send_limit"`

	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// PacingOnly reports whether only pacing fields remain editable.
func (c *Campaign) PacingOnly() bool {
	return c.Status == CampaignReady || c.Status == CampaignPaused || c.Status == CampaignSending
}

// Editable reports whether the campaign accepts any edit at all.
func (c *Campaign) Editable() bool {
	return c.Status != CampaignGenerating && c.Status != CampaignCompleted
}
