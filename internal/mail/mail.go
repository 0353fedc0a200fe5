// file: internal/mail/mail.go
// version: 1.0.0
// guid: 4f5a6b7c-8d9e-0f1a-2b3c-4d5e6f7a8b9c

package mail

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// SortedLabel is the mailbox label a message is moved to once filed.
const SortedLabel = "sorted"

// AttachmentRef identifies one attachment of a message without its bytes;
// the payload is fetched separately through the source.
type AttachmentRef struct {
	Filename     string
	MIMEType     string
	AttachmentID string
}

// Email is the parsed shape of one inbox message.
type Email struct {
	ID          string
	ThreadID    string
	Subject     string
	From        string
	Date        time.Time
	Body        string
	Attachments []AttachmentRef
}

// Source is the mailbox surface the pipeline consumes. Implementations own
// authentication and paging.
type Source interface {
	// ListInbox returns the IDs of messages currently in the inbox.
	ListInbox(ctx context.Context) ([]string, error)
	// Fetch retrieves and parses one message.
	Fetch(ctx context.Context, id string) (*Email, error)
	// FetchAttachment retrieves the bytes of one attachment.
	FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	// MarkSorted moves a message out of the inbox into the sorted label.
	MarkSorted(ctx context.Context, messageID string) error
}

// Skip reasons reported by Eligibility. These feed the skip metrics and the
// processing log, so keep them stable.
const (
	SkipReply         = "reply"
	SkipThread        = "thread_follow_up"
	SkipSender        = "foreign_sender"
	SkipNoAttachments = "no_invoice_attachment"
)

// Eligibility decides whether a message is a shop notification worth
// processing. It returns ok=false with one of the Skip reasons otherwise.
//
// The rules mirror how the shop's mailer behaves: originals arrive as fresh
// threads from the shop's own domain carrying at least one invoice PDF;
// anything else in the inbox is human conversation.
func Eligibility(e *Email, senderDomain string) (ok bool, reason string) {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(e.Subject)), "re:") {
		return false, SkipReply
	}
	if e.ThreadID != "" && e.ThreadID != e.ID {
		return false, SkipThread
	}
	if senderDomain != "" && !strings.HasSuffix(strings.ToLower(senderAddress(e.From)), "@"+strings.ToLower(senderDomain)) {
		return false, SkipSender
	}
	if len(InvoiceAttachments(e.Attachments)) == 0 {
		return false, SkipNoAttachments
	}
	return true, ""
}

// senderAddress strips a display name from a From header value.
func senderAddress(from string) string {
	from = strings.TrimSpace(from)
	if open := strings.LastIndex(from, "<"); open >= 0 {
		if end := strings.LastIndex(from, ">"); end > open {
			return from[open+1 : end]
		}
	}
	return from
}

// InvoiceAttachments filters to PDF attachments whose name marks them as
// invoices. These drive processing; a message without one is skipped.
func InvoiceAttachments(refs []AttachmentRef) []AttachmentRef {
	var out []AttachmentRef
	for _, r := range refs {
		name := strings.ToLower(r.Filename)
		if strings.HasSuffix(name, ".pdf") && strings.Contains(name, "invoice") {
			out = append(out, r)
		}
	}
	return out
}

// InspectionAttachments filters to PDF attachments that are not invoices.
// The shop sends DOT inspection reports alongside the invoice in the same
// message.
func InspectionAttachments(refs []AttachmentRef) []AttachmentRef {
	var out []AttachmentRef
	for _, r := range refs {
		name := strings.ToLower(r.Filename)
		if strings.HasSuffix(name, ".pdf") && !strings.Contains(name, "invoice") {
			out = append(out, r)
		}
	}
	return out
}

var (
	spanPattern  = regexp.MustCompile(`(?is)<span[^>]*>(.*?)</span>`)
	tagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern = regexp.MustCompile(`[ \t]+`)
)

// CompanyLine extracts the customer name from a message body. The shop's
// template puts the company on the first non-empty line of the plain-text
// part; HTML-only messages carry it in the first span.
func CompanyLine(body string) string {
	if m := spanPattern.FindStringSubmatch(body); m != nil {
		if line := firstLine(tagPattern.ReplaceAllString(m[1], " ")); line != "" {
			return line
		}
	}
	return firstLine(tagPattern.ReplaceAllString(body, " "))
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(spacePattern.ReplaceAllString(line, " ")); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
