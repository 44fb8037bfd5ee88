package model

// SenderProfile is the identity used as the From for a campaign.
// It is effectively immutable while a campaign is actively sending:
// the campaign edit gate blocks swapping it outside draft.
type SenderProfile struct {
	ID        int    `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	FromName  string `db:"from_name" json:"from_name"`
	FromEmail string `db:"from_email" json:"from_email"`
	ReplyTo   string `db:"reply_to" json:"reply_to"`
}
