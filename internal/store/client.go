package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/tildaslashalef/docsync/internal/config"
	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/ulid"
)

// Client handles HTTP communication with the document store
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *loggy.Logger
}

var _ Store = (*Client)(nil)

// NewClient creates a new store client. An empty token means unauthenticated mode.
func NewClient(cfg config.StoreConfig, logger *loggy.Logger) *Client {
	// Create transport with connection pooling from config
	var transport http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	if cfg.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   transport,
		}
	}

	if logger == nil {
		logger = loggy.GetGlobalLogger()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter:    newLimiter(cfg.RequestsPerMinute, cfg.BurstLimit),
		maxRetries: cfg.MaxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     logger,
	}
}

// BaseURL returns the store base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDocuments fetches every document visible to the caller
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := c.sendJSON(ctx, http.MethodPost, "/documents", struct{}{}, false, &docs); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// ListFolderSummaries fetches the folder summary list
func (c *Client) ListFolderSummaries(ctx context.Context) ([]FolderSummary, error) {
	var folders []FolderSummary
	if err := c.makeRequest(ctx, http.MethodGet, "/folders/summary", nil, "", false, &folders); err != nil {
		return nil, fmt.Errorf("listing folder summaries: %w", err)
	}
	return folders, nil
}

// GetFolder fetches a folder with its member document ids
func (c *Client) GetFolder(ctx context.Context, id string) (*FolderDetail, error) {
	var folder FolderDetail
	if err := c.makeRequest(ctx, http.MethodGet, "/folders/"+url.PathEscape(id), nil, "", false, &folder); err != nil {
		return nil, fmt.Errorf("getting folder %s: %w", id, err)
	}
	return &folder, nil
}

// BatchGetDocuments fetches the documents with the given ids
func (c *Client) BatchGetDocuments(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return []Document{}, nil
	}

	body := struct {
		DocumentIDs []string `json:"document_ids"`
	}{DocumentIDs: ids}

	var docs []Document
	if err := c.sendJSON(ctx, http.MethodPost, "/batch/documents", body, false, &docs); err != nil {
		return nil, fmt.Errorf("batch fetching %d documents: %w", len(ids), err)
	}
	return docs, nil
}

// GetDocument fetches a single document
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := c.makeRequest(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), nil, "", true, &doc); err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	return &doc, nil
}

// DeleteDocument deletes a document
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if err := c.makeRequest(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, "", false, nil); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// GetDocumentStatus fetches the processing status of a document
func (c *Client) GetDocumentStatus(ctx context.Context, id string) (*DocumentStatus, error) {
	var status DocumentStatus
	path := fmt.Sprintf("/documents/%s/status", url.PathEscape(id))
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, "", false, &status); err != nil {
		return nil, fmt.Errorf("getting status of %s: %w", id, err)
	}
	if status.DocumentID == "" {
		status.DocumentID = id
	}
	return &status, nil
}

// UploadFile uploads one file
func (c *Client) UploadFile(ctx context.Context, file File, opts UploadOptions) (*Document, error) {
	body, contentType, err := buildMultipart("file", []File{file}, opts.formFields())
	if err != nil {
		return nil, fmt.Errorf("building upload of %s: %w", file.Name, err)
	}

	var doc Document
	if err := c.makeRequest(ctx, http.MethodPost, "/ingest/file", body, contentType, false, &doc); err != nil {
		return nil, fmt.Errorf("uploading %s: %w", file.Name, err)
	}
	return &doc, nil
}

// UploadFiles uploads several files in one request
func (c *Client) UploadFiles(ctx context.Context, files []File, opts UploadOptions) (*BatchUploadResult, error) {
	fields := append(opts.formFields(), formField{"parallel", "true"})
	body, contentType, err := buildMultipart("files", files, fields)
	if err != nil {
		return nil, fmt.Errorf("building batch upload: %w", err)
	}

	var result BatchUploadResult
	if err := c.makeRequest(ctx, http.MethodPost, "/ingest/files", body, contentType, false, &result); err != nil {
		return nil, fmt.Errorf("uploading %d files: %w", len(files), err)
	}
	return &result, nil
}

// UploadText ingests a text body
func (c *Client) UploadText(ctx context.Context, req TextIngestRequest) (*Document, error) {
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}
	if req.Rules == nil {
		req.Rules = []any{}
	}

	var doc Document
	if err := c.sendJSON(ctx, http.MethodPost, "/ingest/text", req, false, &doc); err != nil {
		return nil, fmt.Errorf("ingesting text: %w", err)
	}
	return &doc, nil
}

// DownloadURL resolves a download location for a document
func (c *Client) DownloadURL(ctx context.Context, id string) (string, error) {
	var resp struct {
		DownloadURL string `json:"download_url"`
	}
	path := fmt.Sprintf("/documents/%s/download_url", url.PathEscape(id))
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, "", true, &resp); err != nil {
		return "", fmt.Errorf("getting download url of %s: %w", id, err)
	}
	if resp.DownloadURL == "" {
		return "", fmt.Errorf("store returned no download url for %s", id)
	}
	return resp.DownloadURL, nil
}

type formField struct {
	name  string
	value string
}

func (o UploadOptions) formFields() []formField {
	metadata := o.Metadata
	if strings.TrimSpace(metadata) == "" {
		metadata = "{}"
	}
	rules := o.Rules
	if strings.TrimSpace(rules) == "" {
		rules = "[]"
	}

	fields := []formField{
		{"metadata", metadata},
		{"rules", rules},
		{"use_colpali", strconv.FormatBool(o.UseColpali)},
	}
	if o.FolderName != "" {
		fields = append(fields, formField{"folder_name", o.FolderName})
	}
	return fields
}

// buildMultipart encodes files under fileField followed by the plain form fields
func buildMultipart(fileField string, files []File, fields []formField) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		part, err := w.CreateFormFile(fileField, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("writing form file %s: %w", f.Name, err)
		}
	}

	for _, field := range fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("writing form field %s: %w", field.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// sendJSON marshals body and sends it as application/json
func (c *Client) sendJSON(ctx context.Context, method, path string, body interface{}, retry bool, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}
	return c.makeRequest(ctx, method, path, bodyBytes, "application/json", retry, out)
}

// makeRequest sends a request to the store and decodes the response into out.
// With retry set, transient failures are retried with exponential backoff; 4xx
// responses are never retried. Listing, folder detail, batch and status reads
// issue exactly one request so their failures reach the caller.
func (c *Client) makeRequest(ctx context.Context, method, path string, body []byte, contentType string, retry bool, out interface{}) error {
	endpoint := c.baseURL + path

	requestID := loggy.GetRequestID(ctx)
	if requestID == "" {
		requestID = ulid.RequestID()
	}

	logger := c.logger.With("method", method, "path", path, "request_id", requestID)

	operation := func() error {
		// Wait for rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter error: %w", err))
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}

		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("executing request: %w", err))
			}
			logger.Debug("Store request failed", "error", err)
			return fmt.Errorf("executing request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		logger.Debug("Store response",
			"status_code", resp.StatusCode,
			"content_length", len(respBody),
			"duration", time.Since(start))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := parseAPIError(resp.StatusCode, respBody)
			if apiErr.Temporary() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}

		return nil
	}

	retries := 0
	if retry && c.maxRetries > 0 {
		retries = c.maxRetries
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(retries)), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		var apiErr APIError
		if errors.As(err, &apiErr) {
			logger.Debug("Store returned error", "status_code", apiErr.StatusCode, "message", apiErr.Message)
		}
		return err
	}

	return nil
}
