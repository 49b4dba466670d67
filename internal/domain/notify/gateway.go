package notify

import "context"

// Gateway is the capability that actually transmits a message. The engine
// treats it as a black box: one synchronous call returning the
// provider-assigned message id on success.
type Gateway interface {
	SendTemplate(ctx context.Context, recipientPhone, templateName string, params []string) (providerMessageID string, err error)
}
