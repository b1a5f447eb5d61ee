// Package zoho provides a Zoho CRM backed claims client. It implements the
// crm.Client interface.
//
// Authentication uses the OAuth refresh-token flow: the long-lived refresh
// token is exchanged for a short-lived access token, which is cached until
// shortly before it expires.
package zoho

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
	"os"
	"strings"
	"sync"
	"time"
)

const (
	defaultAccountsURL = "https://accounts.zoho.eu"
	defaultAPIURL      = "https://www.zohoapis.eu"

	// Refresh the access token a minute before Zoho expires it.
	tokenSlack = time.Minute
)

// leadFieldMap translates intake field names to Zoho lead API names. Fields
// without a mapping go into the lead description.
var leadFieldMap = map[string]string{
	"Passenger Name":      "Last_Name",
	"Contact Email":       "Email",
	"Flight Number":       "Flight_Number",
	"Flight Date":         "Flight_Date",
	"Airline":             "Airline",
	"Departure Airport":   "Departure_Airport",
	"Arrival Airport":     "Arrival_Airport",
	"Delay Hours":         "Delay_Hours",
	"Airline Response":    "Airline_Response",
	"Compensation_Amount": "Compensation_Amount",
	"Claim_Status":        "Claim_Status",
}

// Option is a functional option for configuring the Zoho Client.
type Option func(*Client)

// WithAccountsURL overrides the OAuth accounts host, mainly for tests and
// non-EU data centers.
func WithAccountsURL(u string) Option {
	return func(c *Client) {
		c.accountsURL = strings.TrimRight(u, "/")
	}
}

// WithAPIURL overrides the CRM API host.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		c.apiURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client implements crm.Client against the Zoho CRM v2 API.
type Client struct {
	clientID     string
	clientSecret string
	refreshToken string
	accountsURL  string
	apiURL       string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// New creates a Zoho Client. All three credentials must be non-empty.
func New(clientID, clientSecret, refreshToken string, opts ...Option) (*Client, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, errors.New("zoho: clientID, clientSecret and refreshToken must not be empty")
	}
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		accountsURL:  defaultAccountsURL,
		apiURL:       defaultAPIURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// tokenResponse is the OAuth token endpoint's JSON body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
}

// accessTokenFor returns a valid access token, refreshing if needed.
func (c *Client) accessTokenFor(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.accountsURL+"/oauth/v2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("zoho: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoho: token HTTP: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("zoho: token decode: %w", err)
	}
	if tr.Error != "" {
		return "", fmt.Errorf("zoho: token refresh: %s", tr.Error)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("zoho: token refresh: empty access token, status %d", resp.StatusCode)
	}

	c.accessToken = tr.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSlack)
	return c.accessToken, nil
}

// createResponse is the JSON body of POST /crm/v2/Leads.
type createResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

// CreateLead implements crm.Client.
func (c *Client) CreateLead(ctx context.Context, fields map[string]string) (string, error) {
	token, err := c.accessTokenFor(ctx)
	if err != nil {
		return "", err
	}

	lead := make(map[string]any, len(fields))
	var extra []string
	for name, value := range fields {
		if api, ok := leadFieldMap[name]; ok {
			lead[api] = value
		} else {
			extra = append(extra, name+": "+value)
		}
	}
	if len(extra) > 0 {
		lead["Description"] = strings.Join(extra, "\n")
	}
	if _, ok := lead["Last_Name"]; !ok {
		// Zoho rejects leads without a Last_Name.
		lead["Last_Name"] = "Unknown Passenger"
	}
	lead["Lead_Source"] = "Voice Intake"

	payload, err := json.Marshal(map[string]any{"data": []any{lead}})
	if err != nil {
		return "", fmt.Errorf("zoho: encode lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/crm/v2/Leads", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("zoho: build lead request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoho: create lead HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("zoho: create lead: status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var cr createResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("zoho: create lead decode: %w", err)
	}
	if len(cr.Data) == 0 {
		return "", errors.New("zoho: create lead: empty response")
	}
	if !strings.EqualFold(cr.Data[0].Code, "SUCCESS") {
		return "", fmt.Errorf("zoho: create lead: %s: %s", cr.Data[0].Code, cr.Data[0].Message)
	}
	return cr.Data[0].Details.ID, nil
}

// AttachFile implements crm.Client.
func (c *Client) AttachFile(ctx context.Context, leadID, path, filename string) error {
	token, err := c.accessTokenFor(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("zoho: open attachment: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("zoho: build attachment request: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fmt.Errorf("zoho: read attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("zoho: build attachment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/crm/v2/Leads/%s/Attachments", c.apiURL, leadID), &body)
	if err != nil {
		return fmt.Errorf("zoho: build attachment request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zoho: attach file HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("zoho: attach file: status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return nil
}
