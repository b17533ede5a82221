package raynet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned by write operations when no Raynet
// credentials are configured. Reads degrade to an empty result instead.
var ErrNotConfigured = errors.New("raynet credentials not configured")

// RequestError carries the upstream HTTP status and body of a failed call.
type RequestError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("raynet %s %s -> %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client is a Raynet CRM REST client authenticated with HTTP Basic
// credentials built from the configured login and API key.
type Client struct {
	baseURL      string
	login        string
	apiKey       string
	httpClient   *http.Client
	uploadClient *http.Client
	log          *zap.Logger
}

// NewClient creates a Raynet client. Document uploads use a fixed 60 second
// timeout regardless of the configured request timeout.
func NewClient(baseURL, login, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.L()
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		login:        login,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
		uploadClient: &http.Client{Timeout: 60 * time.Second},
		log:          log,
	}
}

// IsConfigured reports whether both login and API key are present.
func (c *Client) IsConfigured() bool {
	return c.login != "" && c.apiKey != ""
}

func (c *Client) basicAuth() string {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.login + ":" + c.apiKey))
	return "Basic " + credentials
}

// ListCompanies fetches all companies. Without credentials it returns an
// empty result: the read cache is advisory and sync stays best-effort.
func (c *Client) ListCompanies(ctx context.Context) ([]Company, error) {
	if !c.IsConfigured() {
		c.log.Warn("Raynet credentials not configured, skipping company listing")
		return nil, nil
	}

	raw, err := c.getJSON(ctx, "/company", nil)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope[Company]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode company list: %w", err)
	}
	return envelope.Data, nil
}

// ListPersons fetches the persons attached to one company.
func (c *Client) ListPersons(ctx context.Context, companyID string) ([]Person, error) {
	if !c.IsConfigured() {
		c.log.Warn("Raynet credentials not configured, skipping person listing")
		return nil, nil
	}

	raw, err := c.getJSON(ctx, "/person", url.Values{"companyId": {companyID}})
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope[Person]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode person list: %w", err)
	}
	return envelope.Data, nil
}

// CreateOpportunity creates a sales opportunity and returns the raw response
// body for the caller to extract the opportunity id from.
func (c *Client) CreateOpportunity(ctx context.Context, params OpportunityParams) (json.RawMessage, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body := map[string]any{
		"name":    params.Name,
		"company": map[string]int64{"id": params.CompanyID},
		"state":   "OPEN",
	}
	if params.PersonID != nil {
		body["person"] = map[string]int64{"id": *params.PersonID}
	}
	if params.EstimatedValue != nil {
		body["estimatedValue"] = *params.EstimatedValue
		body["currency"] = "PLN"
	}
	if params.ValidFrom != "" {
		body["validFrom"] = params.ValidFrom
	}
	if params.ValidTill != "" {
		body["validTill"] = params.ValidTill
	}

	raw, err := c.postJSON(ctx, "/opportunity", body)
	if err != nil {
		return nil, err
	}
	c.log.Info("Created opportunity in Raynet", zap.ByteString("response", raw))
	return raw, nil
}

// UploadDocument attaches a PDF as a quote-type document to an opportunity.
func (c *Client) UploadDocument(ctx context.Context, name string, opportunityID int64, pdf []byte, filename string) (json.RawMessage, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("name", name); err != nil {
		return nil, err
	}
	if err := form.WriteField("opportunity", strconv.FormatInt(opportunityID, 10)); err != nil {
		return nil, err
	}
	if err := form.WriteField("type", "QUOTE"); err != nil {
		return nil, err
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", "application/pdf")
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/document", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", c.basicAuth())

	raw, err := c.do(c.uploadClient, req)
	if err != nil {
		return nil, err
	}
	c.log.Info("Uploaded document to Raynet", zap.ByteString("response", raw))
	return raw, nil
}

// CreateActivity logs an outbound email activity in the CRM.
func (c *Client) CreateActivity(ctx context.Context, params ActivityParams) (json.RawMessage, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body := map[string]any{
		"subject": params.Subject,
		"type":    "EMAIL",
		"company": map[string]int64{"id": params.CompanyID},
		"note":    params.Note,
	}
	if params.PersonID != nil {
		body["person"] = map[string]int64{"id": *params.PersonID}
	}
	if params.OpportunityID != nil {
		body["opportunity"] = map[string]int64{"id": *params.OpportunityID}
	}

	raw, err := c.postJSON(ctx, "/activity", body)
	if err != nil {
		return nil, err
	}
	c.log.Info("Created activity in Raynet", zap.ByteString("response", raw))
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.basicAuth())

	return c.do(c.httpClient, req)
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.basicAuth())

	return c.do(c.httpClient, req)
}

func (c *Client) do(client *http.Client, req *http.Request) (json.RawMessage, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("raynet %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &RequestError{
			Method: req.Method,
			Path:   req.URL.Path,
			Status: resp.StatusCode,
			Body:   string(respBody),
		}
	}

	return respBody, nil
}
