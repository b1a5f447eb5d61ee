package resilience

import (
	"context"

	"github.com/geniusjr001/claimsvoice/pkg/provider/crm"
)

// CRMBreaker implements [crm.Client] behind a single circuit breaker. There
// is no alternative CRM to fail over to; the breaker exists so a Zoho outage
// fails claim submissions fast instead of stacking up 30 second timeouts.
type CRMBreaker struct {
	next    crm.Client
	breaker *CircuitBreaker
}

// Compile-time interface assertion.
var _ crm.Client = (*CRMBreaker)(nil)

// NewCRMBreaker wraps next with a breaker using the given configuration.
func NewCRMBreaker(next crm.Client, cfg CircuitBreakerConfig) *CRMBreaker {
	if cfg.Name == "" {
		cfg.Name = "crm"
	}
	return &CRMBreaker{next: next, breaker: NewCircuitBreaker(cfg)}
}

// CreateLead implements crm.Client.
func (b *CRMBreaker) CreateLead(ctx context.Context, fields map[string]string) (string, error) {
	var id string
	err := b.breaker.Execute(func() error {
		var innerErr error
		id, innerErr = b.next.CreateLead(ctx, fields)
		return innerErr
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AttachFile implements crm.Client.
func (b *CRMBreaker) AttachFile(ctx context.Context, leadID, path, filename string) error {
	return b.breaker.Execute(func() error {
		return b.next.AttachFile(ctx, leadID, path, filename)
	})
}
