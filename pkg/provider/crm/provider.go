// Package crm defines the Client interface for the CRM backend that receives
// finished claims.
//
// A claim becomes a CRM lead carrying the collected field values, with any
// uploaded documents attached to it. Implementations must be safe for
// concurrent use.
package crm

import "context"

// Client is the abstraction over any CRM backend.
type Client interface {
	// CreateLead submits the collected claim fields and returns the new
	// lead's ID.
	CreateLead(ctx context.Context, fields map[string]string) (string, error)

	// AttachFile uploads the document at path to an existing lead, stored
	// under filename.
	AttachFile(ctx context.Context, leadID, path, filename string) error
}
