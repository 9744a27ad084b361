package interfaces

import "context"

// WebhookDispatcher drains due WebhookDelivery rows and POSTs them to their
// subscription's target URL, retrying with backoff until delivered or the
// attempt budget is exhausted.
type WebhookDispatcher interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
