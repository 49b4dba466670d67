package delivery

// Webhook payload shapes for the WhatsApp Business Cloud API. Only the
// fields the engine consumes are modeled; everything else is ignored on
// decode.

const WebhookObject = "whatsapp_business_account"

type WebhookEnvelope struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Statuses         []WebhookStatus  `json:"statuses,omitempty"`
	Messages         []WebhookMessage `json:"messages,omitempty"`
}

type WebhookStatus struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Timestamp   string         `json:"timestamp"` // unix seconds, as a string
	RecipientID string         `json:"recipient_id"`
	Errors      []WebhookError `json:"errors,omitempty"`
}

type WebhookError struct {
	Code    int32  `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// WebhookMessage is an inbound text from a client, delivered on the same
// hook. The engine only logs these.
type WebhookMessage struct {
	From      string           `json:"from"`
	ID        string           `json:"id"`
	Timestamp string           `json:"timestamp"`
	Type      string           `json:"type"`
	Text      *WebhookTextBody `json:"text,omitempty"`
}

type WebhookTextBody struct {
	Body string `json:"body"`
}
