// file: internal/mail/gmail.go
// version: 1.0.0
// guid: 5a6b7c8d-9e0f-1a2b-3c4d-5e6f7a8b9c0d

package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	netmail "net/mail"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSource implements Source against the Gmail API using a delegated
// service account.
type GmailSource struct {
	svc  *gmail.Service
	user string

	sortedLabelID string
}

// NewGmailSource builds a source that reads the given user's mailbox with
// the service-account credentials at credentialsFile.
func NewGmailSource(ctx context.Context, credentialsFile, user string) (*GmailSource, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	cfg.Subject = user

	svc, err := gmail.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &GmailSource{svc: svc, user: user}, nil
}

// ListInbox returns the IDs of all messages currently labeled INBOX,
// oldest first so reruns pick up where they left off.
func (g *GmailSource) ListInbox(ctx context.Context) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		call := g.svc.Users.Messages.List(g.user).LabelIds("INBOX").MaxResults(500).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list inbox: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	// The API returns newest first.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

// Fetch retrieves one message and parses its headers, body, and attachment
// references.
func (g *GmailSource) Fetch(ctx context.Context, id string) (*Email, error) {
	msg, err := g.svc.Users.Messages.Get(g.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", id, err)
	}
	return parseMessage(msg), nil
}

// FetchAttachment retrieves the bytes of one attachment.
func (g *GmailSource) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	att, err := g.svc.Users.Messages.Attachments.Get(g.user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch attachment: %w", err)
	}
	data, err := decodeBody(att.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment: %w", err)
	}
	return data, nil
}

// MarkSorted moves a message out of the inbox into the sorted label,
// creating the label on first use.
func (g *GmailSource) MarkSorted(ctx context.Context, messageID string) error {
	labelID, err := g.ensureSortedLabel(ctx)
	if err != nil {
		return err
	}
	_, err = g.svc.Users.Messages.Modify(g.user, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{labelID},
		RemoveLabelIds: []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("move message %s to %s: %w", messageID, SortedLabel, err)
	}
	return nil
}

func (g *GmailSource) ensureSortedLabel(ctx context.Context) (string, error) {
	if g.sortedLabelID != "" {
		return g.sortedLabelID, nil
	}

	list, err := g.svc.Users.Labels.List(g.user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	for _, l := range list.Labels {
		if l.Name == SortedLabel {
			g.sortedLabelID = l.Id
			return l.Id, nil
		}
	}

	created, err := g.svc.Users.Labels.Create(g.user, &gmail.Label{Name: SortedLabel}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %s: %w", SortedLabel, err)
	}
	log.Printf("[INFO] created mailbox label %q", SortedLabel)
	g.sortedLabelID = created.Id
	return created.Id, nil
}

func parseMessage(msg *gmail.Message) *Email {
	e := &Email{ID: msg.Id, ThreadID: msg.ThreadId}
	if msg.Payload == nil {
		return e
	}

	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			e.Subject = h.Value
		case "From":
			e.From = h.Value
		case "Date":
			if t, err := netmail.ParseDate(h.Value); err == nil {
				e.Date = t
			}
		}
	}
	if e.Date.IsZero() && msg.InternalDate > 0 {
		e.Date = time.UnixMilli(msg.InternalDate)
	}

	var plain, html string
	walkParts(msg.Payload, func(p *gmail.MessagePart) {
		if p.Filename != "" {
			if p.Body != nil && p.Body.AttachmentId != "" {
				e.Attachments = append(e.Attachments, AttachmentRef{
					Filename:     p.Filename,
					MIMEType:     p.MimeType,
					AttachmentID: p.Body.AttachmentId,
				})
			}
			return
		}
		if p.Body == nil || p.Body.Data == "" {
			return
		}
		data, err := decodeBody(p.Body.Data)
		if err != nil {
			log.Printf("[WARN] undecodable body part in message %s: %v", msg.Id, err)
			return
		}
		switch p.MimeType {
		case "text/plain":
			if plain == "" {
				plain = string(data)
			}
		case "text/html":
			if html == "" {
				html = string(data)
			}
		}
	})

	e.Body = plain
	if e.Body == "" {
		e.Body = html
	}
	return e
}

func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, child := range part.Parts {
		walkParts(child, fn)
	}
}

// decodeBody handles Gmail's base64url encoding, padded or not.
func decodeBody(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
