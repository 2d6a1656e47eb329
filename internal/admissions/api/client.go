// Package api talks to the admissions backend: programme listing, document
// upload, M-PESA push payments and application submission.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/common/errors"
	httpclient "admissions-wizard/internal/common/http"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"
)

const serviceName = "admissions-api"

// Client implements the wizard's uploader, payment gateway and submitter
// against the admissions REST API.
type Client struct {
	http   *httpclient.Client
	paths  config.AdmissionsAPIConfig
	logger logger.Logger
}

func NewClient(cfg config.AdmissionsAPIConfig, log logger.Logger) *Client {
	return &Client{
		http:   httpclient.NewClient(cfg.BaseURL, time.Duration(cfg.Timeout)*time.Millisecond),
		paths:  cfg,
		logger: log,
	}
}

// NewClientWithHTTP builds a client on top of hc.
func NewClientWithHTTP(cfg config.AdmissionsAPIConfig, hc *http.Client, log logger.Logger) *Client {
	return &Client{
		http:   httpclient.NewClientWithHTTP(cfg.BaseURL, hc),
		paths:  cfg,
		logger: log,
	}
}

// envelope is the common response wrapper.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// failed reports a response that explicitly says success=false.
func (e envelope) failed() error {
	if e.Success == nil || *e.Success {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = e.Error
	}
	if msg == "" {
		msg = "request was not successful"
	}
	return fmt.Errorf("%s", msg)
}

// pathList accepts a single path or a list of paths.
type pathList []string

func (p *pathList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*p = nil
		} else {
			*p = pathList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("file paths must be a string or a list of strings")
	}
	*p = many
	return nil
}

// ListPrograms returns the programmes offered by institution. An empty
// institution lists everything.
func (c *Client) ListPrograms(ctx context.Context, institution string) ([]models.Program, error) {
	query := url.Values{}
	if institution != "" {
		query.Set("institution", institution)
	}

	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, c.paths.ProgramsPath, query, &raw); err != nil {
		return nil, c.upstreamError("list_programs", err)
	}

	var programs []models.Program
	if err := json.Unmarshal(raw, &programs); err == nil {
		return programs, nil
	}

	var wrapped struct {
		envelope
		Data     []models.Program `json:"data"`
		Programs []models.Program `json:"programs"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, c.upstreamError("list_programs", fmt.Errorf("decode programs: %w", err))
	}
	if err := wrapped.failed(); err != nil {
		return nil, c.upstreamError("list_programs", err)
	}
	if wrapped.Programs != nil {
		return wrapped.Programs, nil
	}
	return wrapped.Data, nil
}

// Upload sends files as one multipart request keyed by field name and
// returns the stored paths per field.
func (c *Client) Upload(ctx context.Context, files []models.UploadFile) (map[string][]string, error) {
	parts := make([]httpclient.FilePart, 0, len(files))
	for _, f := range files {
		parts = append(parts, httpclient.FilePart{
			Field:       f.Field,
			FileName:    f.Name,
			ContentType: f.ContentType,
			Content:     f.Content,
		})
	}

	var resp struct {
		envelope
		Files map[string]pathList `json:"files"`
	}
	if err := c.http.PostMultipart(ctx, c.paths.UploadPath, parts, &resp); err != nil {
		return nil, c.upstreamError("upload", err)
	}
	if err := resp.failed(); err != nil {
		return nil, c.upstreamError("upload", err)
	}

	out := make(map[string][]string, len(resp.Files))
	for field, paths := range resp.Files {
		if len(paths) > 0 {
			out[field] = []string(paths)
		}
	}
	return out, nil
}

// InitiatePush starts an M-PESA STK push.
func (c *Client) InitiatePush(ctx context.Context, req models.PushPaymentRequest) (*models.PushPaymentResult, error) {
	var resp struct {
		envelope
		models.PushPaymentResult
	}
	if err := c.http.PostJSON(ctx, c.paths.PaymentInit, req, &resp); err != nil {
		return nil, c.upstreamError("payment_initiate", err)
	}
	if err := resp.failed(); err != nil {
		return nil, c.upstreamError("payment_initiate", err)
	}
	if strings.TrimSpace(resp.CheckoutRequestID) == "" {
		return nil, c.upstreamError("payment_initiate", fmt.Errorf("response carried no checkout request id"))
	}
	result := resp.PushPaymentResult
	return &result, nil
}

// VerifyReceipt checks an M-PESA receipt code.
func (c *Client) VerifyReceipt(ctx context.Context, req models.VerifyPaymentRequest) error {
	var resp envelope
	if err := c.http.PostJSON(ctx, c.paths.PaymentVerify, req, &resp); err != nil {
		return c.upstreamError("payment_verify", err)
	}
	if err := resp.failed(); err != nil {
		return c.upstreamError("payment_verify", err)
	}
	return nil
}

// Submit posts the full draft.
func (c *Client) Submit(ctx context.Context, draft *models.ApplicationDraft) (*models.Submission, error) {
	var resp struct {
		envelope
		ApplicationID json.RawMessage `json:"applicationId"`
		Application   json.RawMessage `json:"application"`
	}
	if err := c.http.PostJSON(ctx, c.paths.SubmissionPath, draft, &resp); err != nil {
		return nil, c.upstreamError("submit", err)
	}
	if err := resp.failed(); err != nil {
		return nil, c.upstreamError("submit", err)
	}

	id := applicationID(resp.ApplicationID)
	if id == "" {
		return nil, c.upstreamError("submit", fmt.Errorf("response carried no application id"))
	}
	return &models.Submission{ApplicationID: id, Application: resp.Application}, nil
}

// applicationID accepts string and numeric ids.
func applicationID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (c *Client) upstreamError(operation string, err error) error {
	c.logger.Warn("Admissions API call failed", map[string]interface{}{
		"operation": operation,
		"error":     err,
	})
	stdErr := errors.NewUpstreamUnavailableError(serviceName, err)
	stdErr.Metadata = map[string]interface{}{"operation": operation}
	return stdErr
}
