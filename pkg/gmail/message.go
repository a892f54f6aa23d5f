package gmail

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	maildomain "crm-backend/internal/mail/domain"

	"github.com/emersion/go-message/mail"
	"google.golang.org/api/gmail/v1"
)

const snippetLength = 120

func convertMessage(msg *gmail.Message) *maildomain.InboxMessage {
	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	body := extractBody(msg.Payload)
	snippet := msg.Snippet
	if snippet == "" {
		snippet = truncate(body, snippetLength)
	}

	out := &maildomain.InboxMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  getHeader(headers, "Subject"),
		From:     getHeader(headers, "From"),
		To:       getHeader(headers, "To"),
		Snippet:  snippet,
		Body:     body,
	}
	if msg.InternalDate > 0 {
		received := time.UnixMilli(msg.InternalDate).UTC()
		out.ReceivedAt = &received
	}
	return out
}

// getHeader returns the first header with the given name, ignoring case
func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// extractBody returns the first textual part, searching nested multiparts depth first
func extractBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}

	if part.Body != nil && part.Body.Data != "" && isTextual(part.MimeType) {
		if data, ok := decodeBody(part.Body.Data); ok {
			return data
		}
	}

	for _, sub := range part.Parts {
		if text := extractBody(sub); text != "" {
			return text
		}
	}
	return ""
}

func isTextual(mimeType string) bool {
	return mimeType == "" || strings.HasPrefix(mimeType, "text/")
}

func decodeBody(data string) (string, bool) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded), true
		}
	}
	return "", false
}

// ExtractAddresses returns the bare addresses of an address header value.
// Unparseable values fall back to the text between the last angle brackets.
func ExtractAddresses(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if list, err := mail.ParseAddressList(value); err == nil {
		addrs := make([]string, 0, len(list))
		for _, a := range list {
			addrs = append(addrs, a.Address)
		}
		return addrs
	}

	if open := strings.LastIndex(value, "<"); open >= 0 {
		if end := strings.Index(value[open:], ">"); end > 0 {
			return []string{strings.TrimSpace(value[open+1 : open+end])}
		}
	}
	return []string{value}
}

func composeMessage(w io.Writer, out *maildomain.OutgoingMessage, now time.Time) error {
	var h mail.Header
	h.SetDate(now)
	if out.FromEmail != "" {
		h.SetAddressList("From", []*mail.Address{{Name: out.FromName, Address: out.FromEmail}})
	}
	h.SetAddressList("To", []*mail.Address{{Address: out.To}})
	h.SetSubject(out.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("unable to generate message id: %w", err)
	}

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("unable to compose message: %w", err)
	}
	if _, err := io.WriteString(body, out.Body); err != nil {
		return fmt.Errorf("unable to write message body: %w", err)
	}
	return body.Close()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
