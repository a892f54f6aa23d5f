package usecase

import (
	"fmt"
	"strings"

	contactdomain "crm-backend/internal/contact/domain"
	maildomain "crm-backend/internal/mail/domain"
)

const (
	historyLimit = 5

	defaultSubject   = "Follow up"
	defaultRationale = "Suggested by heuristic"
	defaultBody      = "Just checking in."

	templateRationale = "Generated with fallback template"
)

type draft struct {
	Subject   string
	Body      string
	Rationale string
}

func buildPrompt(contact *contactdomain.Contact, action *contactdomain.Action, history []*maildomain.Message) string {
	lines := make([]string, 0, historyLimit)
	for i, msg := range history {
		if i == historyLimit {
			break
		}
		from := "From you"
		if msg.FromContact() {
			from = "From contact"
		}
		snippet := msg.Snippet
		if snippet == "" {
			snippet = "(no snippet)"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", from, snippet))
	}

	historyText := "No prior messages available."
	if len(lines) > 0 {
		historyText = strings.Join(lines, "\n")
	}

	actionText := "follow up"
	if action != nil {
		actionText = action.Title
	}

	var b strings.Builder
	b.WriteString("You are an assistant helping craft concise follow-up emails for a CRM.\n")
	fmt.Fprintf(&b, "Contact name: %s\n", contact.Name)
	fmt.Fprintf(&b, "Company: %s\n", contact.Company)
	fmt.Fprintf(&b, "Pending action: %s\n", actionText)
	fmt.Fprintf(&b, "History:\n%s\n", historyText)
	b.WriteString("Write a subject line and a short body.\n")
	b.WriteString("Respond in the format: Subject: <subject line>\nBody:\n<body>\nRationale: <one sentence>.")
	return b.String()
}

// parseDraft reads Subject: and Rationale: lines; every other non-blank line
// is body. A "Body:" marker line contributes only its remainder.
func parseDraft(output string) draft {
	d := draft{Subject: defaultSubject, Rationale: defaultRationale}

	var body []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case hasPrefixFold(line, "subject:"):
			if v := strings.TrimSpace(line[len("subject:"):]); v != "" {
				d.Subject = v
			}
		case hasPrefixFold(line, "rationale:"):
			if v := strings.TrimSpace(line[len("rationale:"):]); v != "" {
				d.Rationale = v
			}
		case strings.TrimSpace(line) != "":
			body = append(body, line)
		}
	}

	d.Body = strings.Join(body, "\n")
	if d.Body == "" {
		d.Body = defaultBody
	}
	return d
}

func templateDraft(contact *contactdomain.Contact, action *contactdomain.Action, sender string) draft {
	subject := "Checking in with " + contact.Name
	topic := "our recent conversation"
	if action != nil {
		subject = "Checking in about " + action.Title
		topic = action.Title
	}

	body := fmt.Sprintf("Hi %s,\n\nI hope you're doing well. I wanted to follow up regarding %s.\n\nBest,\n%s",
		contact.Name, topic, sender)

	return draft{Subject: subject, Body: body, Rationale: templateRationale}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
