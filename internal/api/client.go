// Package api is the HTTP client of the plant-maintenance REST backend. It
// moves records, reference data and spreadsheets; shaping and validation
// happen before data reaches it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jionychiow/cmss/internal/domain"
)

const (
	configDataPath      = "/api/maintenance/config/get-config-data/"
	profilePath         = "/api/v1/my-profile/"
	permissionsPath     = "/api/user-management/user-permissions/"
	listUsersPath       = "/api/user-management/list-users/"
	requestIDHeader     = "X-Request-ID"
	contentTypeJSON     = "application/json"
	uploadFileFieldName = "file"
)

// Client talks to the backend over HTTP.
type Client struct {
	cfg      Config
	http     *http.Client
	observer Observer
}

// NewClient creates a Client. A nil observer discards events.
func NewClient(cfg Config, observer Observer) *Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

type response struct {
	status int
	body   []byte
}

// do sends req, retrying connection failures up to MaxRetries times. Status
// errors and cancellations are never retried.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	start := time.Now()
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	var (
		resp     *response
		lastErr  error
		attempts int
	)
	for attempts = 1; attempts <= 1+c.cfg.MaxRetries; attempts++ {
		resp, lastErr = c.doOnce(ctx, req, requestID)
		if lastErr == nil || !isConnectionError(lastErr) || ctx.Err() != nil {
			break
		}
	}
	attempts = min(attempts, 1+c.cfg.MaxRetries)

	err := c.classify(ctx, lastErr)
	event := CallEvent{
		Method:    req.method,
		Path:      req.path,
		RequestID: requestID,
		Attempts:  attempts,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
		ErrorCode: errorCode(err),
	}
	if resp != nil {
		event.Status = resp.status
	}
	var se *StatusError
	if errors.As(err, &se) {
		event.Status = se.Status
	}
	c.observer.OnCallComplete(event)

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctxErr
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, req request, requestID string) (*response, error) {
	target := c.cfg.BaseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set(requestIDHeader, requestID)
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Token "+c.cfg.Token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{Status: httpResp.StatusCode, Detail: errorDetail(respBody)}
	}
	return &response{status: httpResp.StatusCode, body: respBody}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) (*response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return c.do(ctx, request{method: method, path: path, body: data, contentType: contentTypeJSON})
}

// FetchReferenceData loads phases, production lines, processes and shift
// types in one call.
func (c *Client) FetchReferenceData(ctx context.Context) (*domain.ReferenceData, error) {
	var data domain.ReferenceData
	if err := c.getJSON(ctx, configDataPath, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CurrentProfile returns the acting user's profile. Backends without the
// profile endpoint are asked for the permissions view instead.
func (c *Client) CurrentProfile(ctx context.Context) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := c.getJSON(ctx, profilePath, nil, &p)
	if errors.Is(err, ErrNotFound) {
		err = c.getJSON(ctx, permissionsPath, nil, &p)
	}
	if err != nil {
		return nil, err
	}
	p.Username = domain.CoalesceStr(p.Username, c.cfg.Username)
	return &p, nil
}

// ListUsers returns the usernames selectable as implementers.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	var users []struct {
		Username string `json:"username"`
	}
	if err := c.getJSON(ctx, listUsersPath, nil, &users); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(users))
	for _, u := range users {
		if u.Username != "" {
			out = append(out, u.Username)
		}
	}
	return out, nil
}

// List returns the records of res matching query.
func (c *Client) List(ctx context.Context, res Resource, query url.Values) ([]domain.Record, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: res.Path, query: query})
	if err != nil {
		return nil, err
	}
	return decodeRecords(resp.body)
}

// Create posts a new record and returns it as stored.
func (c *Client) Create(ctx context.Context, res Resource, payload map[string]any) (domain.Record, error) {
	resp, err := c.sendJSON(ctx, http.MethodPost, res.Path, payload)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp.body)
}

// Update replaces record id and returns it as stored.
func (c *Client) Update(ctx context.Context, res Resource, id string, payload map[string]any) (domain.Record, error) {
	resp, err := c.sendJSON(ctx, http.MethodPut, res.ItemPath(id), payload)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp.body)
}

// Delete removes record id.
func (c *Client) Delete(ctx context.Context, res Resource, id string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: res.ItemPath(id)})
	return err
}

// UploadResult is the backend's answer to a spreadsheet upload.
type UploadResult struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// Upload sends a workbook as multipart form data with extra form fields.
func (c *Client) Upload(ctx context.Context, res Resource, filename string, data []byte, fields map[string]string) (*UploadResult, error) {
	if !res.HasSpreadsheet() {
		return nil, fmt.Errorf("%w: %s", ErrNoSpreadsheetEndpoint, res.Name)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("writing form field %s: %w", k, err)
		}
	}
	fw, err := mw.CreateFormFile(uploadFileFieldName, filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        res.UploadPath,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	var out UploadResult
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("decoding upload result: %w", err)
	}
	return &out, nil
}

// ExportRequest is the filter body of a spreadsheet export. Phase must
// already be in the form the resource's ExportPhase asks for.
type ExportRequest struct {
	Phase     string
	ShiftType string
	Month     string
}

// Export downloads a filled workbook.
func (c *Client) Export(ctx context.Context, res Resource, req ExportRequest) ([]byte, error) {
	if !res.HasSpreadsheet() {
		return nil, fmt.Errorf("%w: %s", ErrNoSpreadsheetEndpoint, res.Name)
	}
	body := map[string]string{"month": req.Month}
	if res.ExportPhase != PhaseIgnored && req.Phase != "" {
		body["phase"] = req.Phase
	}
	if res.ExportShift && req.ShiftType != "" {
		body["shift_type"] = req.ShiftType
	}
	resp, err := c.sendJSON(ctx, http.MethodPost, res.ExportPath, body)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// DownloadTemplate fetches the backend's blank workbook for res.
func (c *Client) DownloadTemplate(ctx context.Context, res Resource) ([]byte, error) {
	if res.TemplatePath == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSpreadsheetEndpoint, res.Name)
	}
	resp, err := c.do(ctx, request{method: http.MethodGet, path: res.TemplatePath})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.As(err, &se):
		return fmt.Sprintf("HTTP_%d", se.Status)
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}
