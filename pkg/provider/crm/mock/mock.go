// Package mock provides a recording crm.Client for tests.
package mock

import (
	"context"
	"fmt"
	"sync"
)

// Attachment records one AttachFile call.
type Attachment struct {
	LeadID   string
	Path     string
	Filename string
}

// Client implements crm.Client, recording every call.
type Client struct {
	mu          sync.Mutex
	leads       []map[string]string
	attachments []Attachment

	// CreateErr and AttachErr, when set, fail the respective calls.
	CreateErr error
	AttachErr error
}

// New creates an empty recording client.
func New() *Client {
	return &Client{}
}

// CreateLead implements crm.Client. Lead IDs are "lead-1", "lead-2", ...
func (c *Client) CreateLead(_ context.Context, fields map[string]string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CreateErr != nil {
		return "", c.CreateErr
	}
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	c.leads = append(c.leads, copied)
	return fmt.Sprintf("lead-%d", len(c.leads)), nil
}

// AttachFile implements crm.Client.
func (c *Client) AttachFile(_ context.Context, leadID, path, filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AttachErr != nil {
		return c.AttachErr
	}
	c.attachments = append(c.attachments, Attachment{LeadID: leadID, Path: path, Filename: filename})
	return nil
}

// Leads returns the submitted leads in order.
func (c *Client) Leads() []map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]string(nil), c.leads...)
}

// Attachments returns the recorded attachments in order.
func (c *Client) Attachments() []Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Attachment(nil), c.attachments...)
}
