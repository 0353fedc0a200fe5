// file: internal/ingest/processor.go
// version: 1.0.0
// guid: 7c8d9e0f-1a2b-3c4d-5e6f-7a8b9c0d1e2f

package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"github.com/gofleetadvisor/fleetdocs/internal/dockey"
	"github.com/gofleetadvisor/fleetdocs/internal/extract"
	"github.com/gofleetadvisor/fleetdocs/internal/mail"
	"github.com/gofleetadvisor/fleetdocs/internal/matcher"
	"github.com/gofleetadvisor/fleetdocs/internal/metrics"
	"github.com/gofleetadvisor/fleetdocs/internal/models"
	"github.com/gofleetadvisor/fleetdocs/internal/registry"
	"github.com/gofleetadvisor/fleetdocs/internal/storage"
	"github.com/gofleetadvisor/fleetdocs/internal/store"
)

// Pacing defaults. The mail provider throttles aggressively; these numbers
// came from running the predecessor of this pipeline against the same
// mailbox without tripping quota errors.
const (
	DefaultMessageInterval = 3 * time.Second
	DefaultBatchSize       = 20
	DefaultBatchPause      = 30 * time.Second
)

// Merger combines several PDFs into one. Inspection reports sometimes
// arrive as multiple files that belong in a single stored document.
type Merger interface {
	Merge(ctx context.Context, pdfs [][]byte) ([]byte, error)
}

// Options tune a single ingestion run.
type Options struct {
	// SenderDomain restricts processing to messages from this domain.
	// Empty disables the check.
	SenderDomain string
	// MessageInterval is the minimum spacing between messages.
	MessageInterval time.Duration
	// BatchSize is how many messages are processed between long pauses.
	BatchSize int
	// BatchPause is the long pause inserted between batches.
	BatchPause time.Duration
	// DryRun processes and logs without uploading or touching the mailbox.
	DryRun bool
	// ShowProgress renders a terminal progress bar.
	ShowProgress bool
}

func (o *Options) applyDefaults() {
	if o.MessageInterval <= 0 {
		o.MessageInterval = DefaultMessageInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchPause <= 0 {
		o.BatchPause = DefaultBatchPause
	}
}

// Processor drives one pass over the inbox: eligibility, company
// resolution, metadata extraction, filing, and audit logging.
type Processor struct {
	source   mail.Source
	registry *registry.Provider
	texts    extract.TextExtractor
	meta     extract.MetadataExtractor
	bucket   storage.Bucket
	log      *store.SQLiteStore
	merger   Merger
	opts     Options

	limiter *rate.Limiter
}

// NewProcessor wires a processor. texts and merger may be nil; metadata
// extraction then works from nothing and multi-part inspections are filed
// as separate documents.
func NewProcessor(source mail.Source, reg *registry.Provider, texts extract.TextExtractor,
	meta extract.MetadataExtractor, bucket storage.Bucket, logStore *store.SQLiteStore,
	merger Merger, opts Options) *Processor {
	opts.applyDefaults()
	return &Processor{
		source:   source,
		registry: reg,
		texts:    texts,
		meta:     meta,
		bucket:   bucket,
		log:      logStore,
		merger:   merger,
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Every(opts.MessageInterval), 1),
	}
}

// RunStats summarizes one ingestion pass.
type RunStats struct {
	Listed    int
	Filed     int
	Skipped   int
	Failed    int
	Documents int
}

// Run processes every unhandled inbox message once, oldest first.
// Failures on individual messages are logged and counted, not fatal; the
// pass keeps going so one poisoned email cannot wedge the pipeline.
func (p *Processor) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	ids, err := p.source.ListInbox(ctx)
	if err != nil {
		return stats, fmt.Errorf("list inbox: %w", err)
	}
	stats.Listed = len(ids)
	log.Printf("[INFO] inbox pass: %d messages", len(ids))

	processed, err := p.log.ProcessedMessageIDs()
	if err != nil {
		return stats, fmt.Errorf("load processed set: %w", err)
	}

	var bar *progressbar.ProgressBar
	if p.opts.ShowProgress {
		bar = progressbar.Default(int64(len(ids)), "processing inbox")
	}

	for i, id := range ids {
		if bar != nil {
			_ = bar.Add(1)
		}
		if processed[id] {
			stats.Skipped++
			metrics.IncEmailSkipped("already_processed")
			continue
		}

		if err := p.pace(ctx, i); err != nil {
			return stats, err
		}

		start := time.Now()
		filed, err := p.processMessage(ctx, id)
		metrics.ObserveProcess(time.Since(start))
		switch {
		case err != nil:
			stats.Failed++
			metrics.IncEmailFailed()
			log.Printf("[ERROR] message %s: %v", id, err)
			p.append(store.LogEntry{MessageID: id, Status: store.StatusFailed, Detail: err.Error()})
		case filed == 0:
			stats.Skipped++
		default:
			stats.Filed++
			stats.Documents += filed
			metrics.IncEmailProcessed()
		}
	}

	log.Printf("[INFO] inbox pass done: %d filed, %d skipped, %d failed",
		stats.Filed, stats.Skipped, stats.Failed)
	return stats, nil
}

// pace enforces the per-message interval plus a longer pause between
// batches.
func (p *Processor) pace(ctx context.Context, index int) error {
	if index > 0 && index%p.opts.BatchSize == 0 {
		log.Printf("[DEBUG] batch pause %s after %d messages", p.opts.BatchPause, index)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.opts.BatchPause):
		}
	}
	return p.limiter.Wait(ctx)
}

// processMessage handles one email end to end and returns how many
// documents it filed. Zero with a nil error means the message was skipped.
func (p *Processor) processMessage(ctx context.Context, id string) (int, error) {
	email, err := p.source.Fetch(ctx, id)
	if err != nil {
		return 0, err
	}

	if ok, reason := mail.Eligibility(email, p.opts.SenderDomain); !ok {
		metrics.IncEmailSkipped(reason)
		p.append(store.LogEntry{
			MessageID: id, Subject: email.Subject, Sender: email.From,
			Status: store.StatusSkipped, Detail: reason,
		})
		return 0, nil
	}

	reg, err := p.registry.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	metrics.SetRegistrySize(reg.Len())

	rawCompany := mail.CompanyLine(email.Body)
	res := matcher.Resolve(rawCompany, reg)
	metrics.IncResolution(res.Kind)
	if !res.Matched() {
		detail := fmt.Sprintf("company %q unresolved (%s): %s", rawCompany, res.Kind, companySummary(res))
		log.Printf("[WARN] message %s: %s", id, detail)
		metrics.IncEmailSkipped("unresolved_company")
		p.append(store.LogEntry{
			MessageID: id, Subject: email.Subject, Sender: email.From,
			MatchKind: res.Kind, Status: store.StatusSkipped, Detail: detail,
		})
		return 0, nil
	}
	log.Printf("[DEBUG] message %s: %q resolved to %q (%s)", id, rawCompany, res.Key, res.Kind)

	filed, names, err := p.fileAttachments(ctx, email, res.Key)
	if err != nil {
		return 0, err
	}

	if !p.opts.DryRun {
		if err := p.source.MarkSorted(ctx, id); err != nil {
			// The documents are already filed; a labeling failure only
			// means the message shows up again and dedupes next pass.
			log.Printf("[WARN] message %s: %v", id, err)
		}
	}

	p.append(store.LogEntry{
		MessageID: id, Subject: email.Subject, Sender: email.From,
		Company: res.Key, MatchKind: res.Kind, Filenames: names,
		Status: store.StatusFiled,
	})
	return filed, nil
}

// fileAttachments uploads the message's invoice and inspection documents
// and returns the stored filenames.
func (p *Processor) fileAttachments(ctx context.Context, email *mail.Email, companyKey string) (int, []string, error) {
	invoices := mail.InvoiceAttachments(email.Attachments)
	inspections := mail.InspectionAttachments(email.Attachments)

	// The invoice number on the first invoice attachment names the whole
	// visit; inspection reports from the same message share it.
	visitInvoice := ""
	for _, ref := range invoices {
		if n := extract.InvoiceNumber(ref.Filename); n != "" {
			visitInvoice = n
			break
		}
	}

	var filed int
	var names []string

	for _, ref := range invoices {
		data, err := p.source.FetchAttachment(ctx, email.ID, ref.AttachmentID)
		if err != nil {
			return filed, names, fmt.Errorf("attachment %s: %w", ref.Filename, err)
		}
		key := p.buildKey(ctx, email, companyKey, extract.InvoiceNumber(ref.Filename), false, data)
		name, err := p.upload(ctx, storage.BucketInvoice, key, data)
		if err != nil {
			return filed, names, err
		}
		if name != "" {
			filed++
			names = append(names, name)
		}
	}

	if len(inspections) > 0 {
		data, err := p.inspectionPDF(ctx, email, inspections)
		if err != nil {
			return filed, names, err
		}
		for _, doc := range data {
			key := p.buildKey(ctx, email, companyKey, visitInvoice, true, doc)
			name, err := p.upload(ctx, storage.BucketDOT, key, doc)
			if err != nil {
				return filed, names, err
			}
			if name != "" {
				filed++
				names = append(names, name)
			}
		}
	}

	return filed, names, nil
}

// inspectionPDF fetches the inspection attachments, merging them into one
// document when a merger is wired.
func (p *Processor) inspectionPDF(ctx context.Context, email *mail.Email, refs []mail.AttachmentRef) ([][]byte, error) {
	var pdfs [][]byte
	for _, ref := range refs {
		data, err := p.source.FetchAttachment(ctx, email.ID, ref.AttachmentID)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", ref.Filename, err)
		}
		pdfs = append(pdfs, data)
	}
	if len(pdfs) > 1 && p.merger != nil {
		merged, err := p.merger.Merge(ctx, pdfs)
		if err != nil {
			return nil, fmt.Errorf("merge inspection reports: %w", err)
		}
		return [][]byte{merged}, nil
	}
	return pdfs, nil
}

// buildKey assembles the document key for one attachment. Vehicle metadata
// comes from the document text when extractors are wired; missing fields
// encode as NA.
func (p *Processor) buildKey(ctx context.Context, email *mail.Email, companyKey, invoice string, inspection bool, pdf []byte) models.DocumentKey {
	key := models.DocumentKey{
		Company:    companyKey,
		Inspection: inspection,
		Invoice:    invoice,
		Date:       truncateToDay(email.Date),
	}

	if p.texts == nil || p.meta == nil {
		return key
	}
	text, err := p.texts.ExtractText(ctx, pdf)
	if err != nil {
		log.Printf("[WARN] text extraction failed for message %s: %v", email.ID, err)
		return key
	}
	meta, err := p.meta.ExtractVehicleMetadata(ctx, text)
	if err != nil {
		log.Printf("[WARN] metadata extraction failed for message %s: %v", email.ID, err)
		return key
	}
	key.Unit = meta.Unit
	key.VIN = meta.VIN
	key.Plate = meta.Plate
	return key
}

// upload encodes and stores one document, skipping names already present.
// Returns the stored name, or "" when the object already existed.
func (p *Processor) upload(ctx context.Context, bucket string, key models.DocumentKey, data []byte) (string, error) {
	name := dockey.Encode(key)

	exists, err := p.bucket.Exists(ctx, bucket, name)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if exists {
		log.Printf("[DEBUG] %s already stored, skipping upload", name)
		return "", nil
	}

	if p.opts.DryRun {
		log.Printf("[INFO] dry run: would upload %s to %s", name, bucket)
		return name, nil
	}

	if err := p.bucket.Upload(ctx, bucket, name, data); err != nil {
		return "", err
	}
	metrics.IncUpload(bucket)
	log.Printf("[INFO] filed %s/%s", bucket, name)
	return name, nil
}

func (p *Processor) append(entry store.LogEntry) {
	if _, err := p.log.Append(entry); err != nil {
		log.Printf("[ERROR] processing log write failed: %v", err)
	}
}

func truncateToDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// companySummary is what goes into operator-facing log lines for a
// resolution that needed review.
func companySummary(res matcher.Resolution) string {
	if len(res.Candidates) == 0 {
		return "no candidates"
	}
	parts := make([]string, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		parts = append(parts, fmt.Sprintf("%s (%.2f)", c.Key, c.Confidence))
	}
	return strings.Join(parts, ", ")
}
