// file: internal/storage/supabase.go
// version: 1.1.0
// guid: 4b5c6d7e-8f9a-0b1c-2d3e-4f5a6b7c8d9e

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// listPageSize is the page size used when walking a bucket listing.
const listPageSize = 1000

// SupabaseClient talks to the Supabase storage and REST APIs. It implements
// Bucket, CompanyDirectory, and URLBuilder so one client covers all three
// collaborator roles.
type SupabaseClient struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
}

// NewSupabaseClient creates a client for the given project URL and service
// role key.
func NewSupabaseClient(baseURL, serviceKey string) *SupabaseClient {
	return &SupabaseClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
	}
}

func (c *SupabaseClient) authorize(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// List walks the full listing of a bucket page by page.
func (c *SupabaseClient) List(ctx context.Context, bucket string) ([]Object, error) {
	var all []Object
	for offset := 0; ; offset += listPageSize {
		page, err := c.listPage(ctx, bucket, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
	}
}

func (c *SupabaseClient) listPage(ctx context.Context, bucket string, offset int) ([]Object, error) {
	body, err := json.Marshal(listRequest{Limit: listPageSize, Offset: offset})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, url.PathEscape(bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list %s: unexpected status %d", bucket, resp.StatusCode)
	}

	var objects []Object
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("list %s: decode response: %w", bucket, err)
	}
	return objects, nil
}

// Upload stores a PDF under the given name. The name is trimmed before
// upload; stray whitespace in generated filenames has corrupted keys before.
func (c *SupabaseClient) Upload(ctx context.Context, bucket, name string, data []byte) error {
	name = strings.TrimSpace(name)

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(bucket), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("x-upsert", "false")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload %s/%s: status %d: %s", bucket, name, resp.StatusCode, payload)
	}
	return nil
}

// Exists reports whether an object with the exact name is present.
func (c *SupabaseClient) Exists(ctx context.Context, bucket, name string) (bool, error) {
	name = strings.TrimSpace(name)

	endpoint := fmt.Sprintf("%s/storage/v1/object/info/%s/%s", c.baseURL, url.PathEscape(bucket), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("stat %s/%s: %w", bucket, name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("stat %s/%s: unexpected status %d", bucket, name, resp.StatusCode)
	}
}

type companyRow struct {
	Name string `json:"name"`
}

// ListCompanies reads the canonical roster from the companies table.
func (c *SupabaseClient) ListCompanies(ctx context.Context) ([]string, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/companies?select=name", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list companies: unexpected status %d", resp.StatusCode)
	}

	var rows []companyRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("list companies: decode response: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Name == "" {
			log.Printf("[WARN] companies table contains an empty name, skipping")
			continue
		}
		names = append(names, r.Name)
	}
	return names, nil
}

// PublicURL builds the public object URL for presentation layers.
func (c *SupabaseClient) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, url.PathEscape(bucket), url.PathEscape(strings.TrimSpace(name)))
}
