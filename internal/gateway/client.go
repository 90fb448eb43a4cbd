package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
	"github.com/parisxmas/formdesk/internal/service"
)

// DefaultTimeout bounds a request when the caller's context does not.
const DefaultTimeout = 30 * time.Second

// ErrNoBaseURL is returned by every call of a client without a base URL.
var ErrNoBaseURL = errors.New("gateway: base URL is not set")

type Client struct {
	session    Session
	httpClient *http.Client
}

// New returns a client for session. BaseURL is the API root, for example
// "http://localhost:8080/api".
func New(session Session) *Client {
	session.BaseURL = strings.TrimRight(session.BaseURL, "/")
	return &Client{
		session:    session,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

func (c *Client) SetTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

func (c *Client) SetHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// Session returns the session the client sends with each request.
func (c *Client) Session() Session { return c.session }

// do sends one request. A non-nil in is encoded as the JSON body; out, if
// non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("gateway: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) ([]byte, error) {
	if c.session.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	var reqBody io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.session.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.session.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	case c.session.APIKey != "":
		req.Header.Set("X-API-Key", c.session.APIKey)
	}

	return c.MakeRequest(req)
}

// MakeRequest executes req and classifies a failed response.
func (c *Client) MakeRequest(req *http.Request) ([]byte, error) {
	op := req.Method + " " + req.URL.Path
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBytes, nil
	}

	msg := errorMessage(resp, respBytes)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Message: msg}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &ValidationError{Status: resp.StatusCode, Message: msg}
	default:
		return nil, &ServerError{Status: resp.StatusCode, Message: msg}
	}
}

func errorMessage(resp *http.Response, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}

func escape(id string) string { return url.PathEscape(id) }

// Auth

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	var res service.AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &res)
	if err != nil {
		return nil, err
	}
	c.session.Token = res.Token
	return &res, nil
}

// Register creates an account and keeps its token for later calls.
func (c *Client) Register(ctx context.Context, email, password, name string) (*service.AuthResult, error) {
	var res service.AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{"email": email, "password": password, "name": name}, &res)
	if err != nil {
		return nil, err
	}
	c.session.Token = res.Token
	return &res, nil
}

func (c *Client) Me(ctx context.Context) (*models.UserResponse, error) {
	var u models.UserResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in service.ProfileInput) (*models.UserResponse, error) {
	var u models.UserResponse
	if err := c.do(ctx, http.MethodPut, "/auth/profile", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPut, "/auth/password", map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}, nil)
}

func (c *Client) RegenerateAPIKey(ctx context.Context) (string, error) {
	var res struct {
		APIKey string `json:"apiKey"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/regenerate-api-key", nil, &res); err != nil {
		return "", err
	}
	return res.APIKey, nil
}

func (c *Client) GetNotifications(ctx context.Context) (*models.NotificationSettings, error) {
	var n models.NotificationSettings
	if err := c.do(ctx, http.MethodGet, "/auth/notifications", nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) UpdateNotifications(ctx context.Context, n models.NotificationSettings) (*models.NotificationSettings, error) {
	var out models.NotificationSettings
	if err := c.do(ctx, http.MethodPut, "/auth/notifications", n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Forms

func (c *Client) ListForms(ctx context.Context) ([]models.Form, error) {
	var forms []models.Form
	if err := c.do(ctx, http.MethodGet, "/forms", nil, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}

func (c *Client) GetForm(ctx context.Context, id string) (*models.Form, error) {
	var f models.Form
	if err := c.do(ctx, http.MethodGet, "/forms/"+escape(id), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) CreateForm(ctx context.Context, in service.FormInput) (*models.Form, error) {
	var f models.Form
	if err := c.do(ctx, http.MethodPost, "/forms", in, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) UpdateForm(ctx context.Context, id string, p service.FormPatch) (*models.Form, error) {
	var f models.Form
	if err := c.do(ctx, http.MethodPatch, "/forms/"+escape(id), p, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) DeleteForm(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/forms/"+escape(id), nil, nil)
}

func (c *Client) FormAnalytics(ctx context.Context, id string) (*service.FormAnalytics, error) {
	var a service.FormAnalytics
	if err := c.do(ctx, http.MethodGet, "/forms/"+escape(id)+"/analytics", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Submit posts a public submission; it needs no session credentials.
func (c *Client) Submit(ctx context.Context, formID string, data resolver.Object, partial bool) (*SubmissionRecord, error) {
	var sub SubmissionRecord
	in := map[string]any{"data": data, "partial": partial}
	if err := c.do(ctx, http.MethodPost, "/public/forms/"+escape(formID)+"/submissions", in, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Submissions

// ListFilter narrows ListSubmissionsPage. Zero values mean no filter.
type ListFilter struct {
	Status models.Status
	Query  string
	Skip   int
	Limit  int
}

func (f ListFilter) encode() string {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Skip > 0 {
		v.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListSubmissions returns every submission of the form, newest first.
func (c *Client) ListSubmissions(ctx context.Context, formID string) ([]SubmissionRecord, error) {
	page, err := c.ListSubmissionsPage(ctx, formID, ListFilter{})
	if err != nil {
		return nil, err
	}
	return page.Submissions, nil
}

func (c *Client) ListSubmissionsPage(ctx context.Context, formID string, f ListFilter) (*service.SubmissionPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, &ValidationError{Message: "invalid status " + strconv.Quote(string(f.Status))}
	}
	var page service.SubmissionPage
	if err := c.do(ctx, http.MethodGet, "/submissions/form/"+escape(formID)+f.encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) SubmissionRows(ctx context.Context, id string) ([]resolver.Row, error) {
	var rows []resolver.Row
	if err := c.do(ctx, http.MethodGet, "/submissions/"+escape(id)+"/rows", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateSubmissionStatus sets the triage status. A status outside the
// enum fails with a *ValidationError before any request is sent.
func (c *Client) UpdateSubmissionStatus(ctx context.Context, id string, status models.Status) error {
	if !status.Valid() {
		return &ValidationError{Message: "invalid status " + strconv.Quote(string(status))}
	}
	return c.do(ctx, http.MethodPut, "/submissions/"+escape(id)+"/status", map[string]string{"status": string(status)}, nil)
}

// DeleteSubmission removes a submission. Deleting an id that is already
// gone fails with *NotFoundError.
func (c *Client) DeleteSubmission(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/submissions/"+escape(id), nil, nil)
}

// ExportCSV downloads the CSV export of a form.
func (c *Client) ExportCSV(ctx context.Context, formID string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, "/submissions/form/"+escape(formID)+"/export.csv", nil)
}

// SubmissionPDF downloads the PDF report of one submission.
func (c *Client) SubmissionPDF(ctx context.Context, id string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, "/submissions/"+escape(id)+"/pdf", nil)
}

// Webhooks

func (c *Client) ListWebhooks(ctx context.Context) ([]models.Webhook, error) {
	var hooks []models.Webhook
	if err := c.do(ctx, http.MethodGet, "/webhooks", nil, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

func (c *Client) CreateWebhook(ctx context.Context, in service.WebhookInput) (*models.Webhook, error) {
	var h models.Webhook
	if err := c.do(ctx, http.MethodPost, "/webhooks", in, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) UpdateWebhook(ctx context.Context, id string, in service.WebhookInput) (*models.Webhook, error) {
	var h models.Webhook
	if err := c.do(ctx, http.MethodPut, "/webhooks/"+escape(id), in, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/webhooks/"+escape(id), nil, nil)
}

// Integrations

func (c *Client) ListIntegrations(ctx context.Context) ([]models.Integration, error) {
	var items []models.Integration
	if err := c.do(ctx, http.MethodGet, "/integrations", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateIntegration(ctx context.Context, in service.IntegrationInput) (*models.Integration, error) {
	var it models.Integration
	if err := c.do(ctx, http.MethodPost, "/integrations", in, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) UpdateIntegration(ctx context.Context, id string, in service.IntegrationInput) (*models.Integration, error) {
	var it models.Integration
	if err := c.do(ctx, http.MethodPut, "/integrations/"+escape(id), in, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) DeleteIntegration(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/integrations/"+escape(id), nil, nil)
}
