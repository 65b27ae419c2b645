// Package storage holds the rendered invoice documents customers are sent.
package storage

import (
	"context"
	"time"
)

// ObjectStore persists rendered invoice PDFs under opaque keys. The billing
// service only ever writes and links; serving the file happens through a
// presigned URL or the local file path.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// DownloadURL returns a time-limited URL for fetching the object
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// InvoiceKey builds the storage key for an invoice document
func InvoiceKey(invoiceUID string) string {
	return "invoices/" + invoiceUID + ".pdf"
}
