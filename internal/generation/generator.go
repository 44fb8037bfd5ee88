package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/florawise/outreach-backend/internal/model"
)

// Request carries everything the generator needs for one recipient.
type Request struct {
	Campaign *model.Campaign
	Contact  *model.Contact
	Sender   *model.SenderProfile
	Events   []model.Event
}

// Email is a generated subject/body pair. Body is plain text; HTML
// derivation happens in the service layer.
type Email struct {
	Subject string
	Body    string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (*Email, error)
}

// BuildPrompt assembles the generation prompt from campaign config,
// contact context and any attached events.
func BuildPrompt(req Request) string {
	c := req.Campaign
	contact := req.Contact

	var b strings.Builder
	b.WriteString("Write a personalized outreach email.\n\n")

	fmt.Fprintf(&b, "Recipient: %s", contact.FullName())
	if contact.Title != "" {
		fmt.Fprintf(&b, ", %s", contact.Title)
	}
	if contact.CompanyName != "" {
		fmt.Fprintf(&b, " at %s", contact.CompanyName)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Purpose: %s\n", c.Purpose)
	if c.CallToAction != "" {
		fmt.Fprintf(&b, "Call to action: %s\n", c.CallToAction)
	}
	if c.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", c.Tone)
	}
	if c.SubjectGuidance != "" {
		fmt.Fprintf(&b, "Subject line guidance: %s\n", c.SubjectGuidance)
	}
	if c.TargetWordCount > 0 {
		fmt.Fprintf(&b, "Target length: about %d words\n", c.TargetWordCount)
	}
	if c.MustInclude != "" {
		fmt.Fprintf(&b, "Must include: %s\n", c.MustInclude)
	}
	if c.MustAvoid != "" {
		fmt.Fprintf(&b, "Must avoid: %s\n", c.MustAvoid)
	}
	if c.Context != "" {
		fmt.Fprintf(&b, "Additional context: %s\n", c.Context)
	}
	if req.Sender != nil {
		fmt.Fprintf(&b, "Sender: %s <%s>\n", req.Sender.FromName, req.Sender.FromEmail)
	}

	for _, e := range req.Events {
		fmt.Fprintf(&b, "Upcoming event: %s on %s", e.Name, e.StartsAt.Format("January 2, 2006"))
		if e.URL != "" {
			fmt.Fprintf(&b, " (%s)", e.URL)
		}
		b.WriteString("\n")
		if e.Description != "" {
			fmt.Fprintf(&b, "  %s\n", e.Description)
		}
	}

	if c.ReferenceEmail != "" {
		fmt.Fprintf(&b, "\nMatch the style of this reference email:\n%s\n", c.ReferenceEmail)
	}

	b.WriteString("\nRespond with exactly two sections:\nSUBJECT: <subject line>\nBODY:\n<email body>\n")
	return b.String()
}

// ParseEmail extracts the SUBJECT:/BODY: sections from the model output.
// Falls back to first-line-as-subject when the markers are missing.
func ParseEmail(raw string) (*Email, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty generation output")
	}

	upper := strings.ToUpper(raw)
	si := strings.Index(upper, "SUBJECT:")
	bi := strings.Index(upper, "BODY:")

	if si >= 0 && bi > si {
		subject := strings.TrimSpace(raw[si+len("SUBJECT:") : bi])
		body := strings.TrimSpace(raw[bi+len("BODY:"):])
		if body == "" {
			return nil, fmt.Errorf("generation output has empty body")
		}
		return &Email{Subject: subject, Body: body}, nil
	}

	// Fallback: first line is the subject.
	lines := strings.SplitN(raw, "\n", 2)
	if len(lines) < 2 || strings.TrimSpace(lines[1]) == "" {
		return nil, fmt.Errorf("generation output missing body")
	}
	return &Email{
		Subject: strings.TrimSpace(strings.TrimPrefix(lines[0], "Subject:")),
		Body:    strings.TrimSpace(lines[1]),
	}, nil
}
