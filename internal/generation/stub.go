package generation

import (
	"context"
	"fmt"
)

// StubGenerator produces deterministic content without calling any API.
// Used in tests and when no API key is configured.
type StubGenerator struct{}

func (StubGenerator) Generate(_ context.Context, req Request) (*Email, error) {
	contact := req.Contact
	c := req.Campaign

	subject := fmt.Sprintf("%s: a note for %s", c.Name, contact.FullName())

	body := fmt.Sprintf("Hi %s,\n\n%s", contact.FirstName, c.Purpose)
	if c.CallToAction != "" {
		body += "\n\n" + c.CallToAction
	}
	body += "\n\nBest regards"
	if req.Sender != nil {
		body += ",\n" + req.Sender.FromName
	}

	return &Email{Subject: subject, Body: body}, nil
}

var _ Generator = StubGenerator{}
