// file: internal/extract/extract.go
// version: 1.0.0
// guid: 8f9a0b1c-2d3e-4f5a-6b7c-8d9e0f1a2b3c

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// vinSuffixLen is how many trailing VIN characters stand in for a missing
// unit number.
const vinSuffixLen = 8

// invoicePattern pulls the invoice number out of an attachment filename,
// e.g. "Invoice_4512.pdf" or "invoice-4512 copy.pdf".
var invoicePattern = regexp.MustCompile(`(?i)invoice[-_\s]*(\d+)`)

// VehicleMetadata is the structured result of reading a document's text:
// the identifiers a dispatcher would quote when asking for the file back.
type VehicleMetadata struct {
	Unit  string `json:"unit_number"`
	VIN   string `json:"vin"`
	Plate string `json:"license_plate"`
}

// TextExtractor produces plain text from PDF bytes. Implementations wrap
// whatever OCR or pdf-to-text tool the deployment has available.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// MetadataExtractor asks a language model to pick unit, VIN, and plate out
// of free-form document text.
type MetadataExtractor interface {
	ExtractVehicleMetadata(ctx context.Context, text string) (VehicleMetadata, error)
}

// OpenAIExtractor implements MetadataExtractor against the OpenAI chat API.
type OpenAIExtractor struct {
	client  *openai.Client
	model   string
	enabled bool
}

// NewOpenAIExtractor creates an extractor. With an empty key or enabled set
// to false it returns a disabled extractor whose calls yield empty metadata,
// so the pipeline degrades to NA fields instead of failing.
func NewOpenAIExtractor(apiKey, model string, enabled bool) *OpenAIExtractor {
	if !enabled || apiKey == "" {
		return &OpenAIExtractor{enabled: false}
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIExtractor{client: &client, model: model, enabled: true}
}

// IsEnabled reports whether API calls will actually be made.
func (e *OpenAIExtractor) IsEnabled() bool {
	return e.enabled
}

const systemPrompt = `You read fleet maintenance documents: invoices and DOT inspection reports.
Extract the vehicle identifiers from the document text.

Rules:
- unit_number: the customer's unit/truck number, often labeled "Unit", "Unit #", or "Truck".
- vin: the 17-character vehicle identification number if present.
- license_plate: the plate number if present.
- Use an empty string for any field you cannot find. Never guess.

Return ONLY valid JSON:
{"unit_number": "", "vin": "", "license_plate": ""}`

// ExtractVehicleMetadata reads unit, VIN, and plate from document text.
// When the unit number is absent but a VIN was found, the last eight VIN
// characters are used as the unit.
func (e *OpenAIExtractor) ExtractVehicleMetadata(ctx context.Context, text string) (VehicleMetadata, error) {
	if !e.enabled {
		return VehicleMetadata{}, nil
	}
	if strings.TrimSpace(text) == "" {
		return VehicleMetadata{}, nil
	}

	// Long documents blow the token budget without adding identifiers;
	// the header page carries them.
	const maxChars = 12000
	if len(text) > maxChars {
		text = text[:maxChars]
	}

	jsonObjectFormat := shared.NewResponseFormatJSONObjectParam()
	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Document text:\n\n" + text),
		},
		Model:       shared.ChatModel(e.model),
		Temperature: param.NewOpt(0.0),
		MaxTokens:   param.NewOpt[int64](200),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &jsonObjectFormat,
		},
	})
	if err != nil {
		return VehicleMetadata{}, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return VehicleMetadata{}, fmt.Errorf("no response from OpenAI")
	}

	var meta VehicleMetadata
	content := completion.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &meta); err != nil {
		return VehicleMetadata{}, fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	meta.Unit = strings.TrimSpace(meta.Unit)
	meta.VIN = strings.ToUpper(strings.TrimSpace(meta.VIN))
	meta.Plate = strings.ToUpper(strings.TrimSpace(meta.Plate))
	if meta.Unit == "" && meta.VIN != "" {
		meta.Unit = UnitFromVIN(meta.VIN)
		log.Printf("[DEBUG] no unit number found, derived %q from VIN", meta.Unit)
	}
	return meta, nil
}

// UnitFromVIN derives a stand-in unit number from the VIN's last eight
// characters. Shops track trucks by the VIN tail when no unit is painted on.
func UnitFromVIN(vin string) string {
	vin = strings.TrimSpace(vin)
	if len(vin) <= vinSuffixLen {
		return vin
	}
	return vin[len(vin)-vinSuffixLen:]
}

// InvoiceNumber pulls the invoice number out of an attachment filename.
// Returns "" when the name carries none.
func InvoiceNumber(filename string) string {
	m := invoicePattern.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	return m[1]
}
