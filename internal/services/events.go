package services

import "context"

// EventPublisher announces ledger changes to other processes. A nil
// publisher disables announcements.
type EventPublisher interface {
	PublishPaymentCreated(ctx context.Context, paymentID, projectID string) error
	PublishQuoteChosen(ctx context.Context, quoteID, projectID string) error
}
