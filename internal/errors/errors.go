package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrRecipientNotFound struct {
	RecipientID int
}

func (e *ErrRecipientNotFound) Error() string {
	return fmt.Sprintf("recipient with ID %d not found", e.RecipientID)
}

func NewRecipientNotFound(id int) error {
	return &ErrRecipientNotFound{RecipientID: id}
}

// ErrInvalidTransition rejects a status change the state machine does
// not allow. Surfaced as HTTP 409.
type ErrInvalidTransition struct {
	Entity string
	From   string
	To     string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("%s cannot transition from %q to %q", e.Entity, e.From, e.To)
}

func NewInvalidTransition(entity, from, to string) error {
	return &ErrInvalidTransition{Entity: entity, From: from, To: to}
}

// ErrNotDeletable rejects deleting a recipient that has progressed past
// a deletable status (e.g. already sent).
type ErrNotDeletable struct {
	RecipientID int
	Status      string
}

func (e *ErrNotDeletable) Error() string {
	return fmt.Sprintf("recipient %d cannot be deleted in status %q", e.RecipientID, e.Status)
}

func NewNotDeletable(id int, status string) error {
	return &ErrNotDeletable{RecipientID: id, Status: status}
}

// ErrEditLocked rejects a campaign edit blocked by the current status
// (content edits outside draft, any edit while generating/completed).
type ErrEditLocked struct {
	CampaignID int
	Status     string
	Field      string
}

func (e *ErrEditLocked) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("campaign %d: field %q is not editable in status %q", e.CampaignID, e.Field, e.Status)
	}
	return fmt.Sprintf("campaign %d is not editable in status %q", e.CampaignID, e.Status)
}

func NewEditLocked(id int, status, field string) error {
	return &ErrEditLocked{CampaignID: id, Status: status, Field: field}
}
