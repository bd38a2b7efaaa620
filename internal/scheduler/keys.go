package scheduler

import "fmt"

// Job IDs are derived from the entity they serve, never random. Scheduling the
// same work twice therefore replaces the previous job, and cancellation is a
// plain lookup by reconstructed ID.

// RenewalJobID returns the job id for a subscription's renewal timer
func RenewalJobID(subscriptionID string) string {
	return fmt.Sprintf("renewal:%s", subscriptionID)
}

// CancellationJobID returns the job id for a subscription's deferred cancellation
func CancellationJobID(subscriptionID string) string {
	return fmt.Sprintf("cancel:%s", subscriptionID)
}

// InvoiceReminderJobID returns the job id for the n-th payment reminder of an
// invoice
func InvoiceReminderJobID(invoiceID string, n int) string {
	return fmt.Sprintf("invoice:%s:reminder:%d", invoiceID, n)
}

// InvoiceOverdueJobID returns the job id for an invoice's overdue check
func InvoiceOverdueJobID(invoiceID string) string {
	return fmt.Sprintf("invoice:%s:overdue", invoiceID)
}

// RenewalPayload is carried by renewal jobs
type RenewalPayload struct {
	SubscriptionID string `json:"subscription_id"`
	TenantID       string `json:"tenant_id"`
	LocationID     string `json:"location_id"`
}

// CancellationPayload is carried by deferred cancellation jobs
type CancellationPayload struct {
	SubscriptionID string `json:"subscription_id"`
	TenantID       string `json:"tenant_id"`
	LocationID     string `json:"location_id"`
}

// InvoicePayload is carried by reminder and overdue jobs
type InvoicePayload struct {
	InvoiceID  string `json:"invoice_id"`
	TenantID   string `json:"tenant_id"`
	LocationID string `json:"location_id"`
	Sequence   int    `json:"sequence,omitempty"`
}
