package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhatsAppClient sends template messages through the WhatsApp Business
// Cloud API. It implements notify.Gateway.
type WhatsAppClient struct {
	baseURL    string
	phoneID    string
	token      string
	httpClient *http.Client
}

func NewWhatsAppClient(baseURL, phoneID, token string) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL: baseURL,
		phoneID: phoneID,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type templateRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templatePayload `json:"template"`
}

type templatePayload struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendTemplate posts one template message and returns the provider-assigned
// message id.
func (c *WhatsAppClient) SendTemplate(ctx context.Context, recipientPhone, templateName string, params []string) (string, error) {
	parameters := make([]templateParameter, 0, len(params))
	for _, p := range params {
		parameters = append(parameters, templateParameter{Type: "text", Text: p})
	}

	reqBody := templateRequest{
		MessagingProduct: "whatsapp",
		To:               recipientPhone,
		Type:             "template",
		Template: templatePayload{
			Name:     templateName,
			Language: templateLanguage{Code: "en"},
		},
	}
	if len(parameters) > 0 {
		reqBody.Template.Components = []templateComponent{
			{Type: "body", Parameters: parameters},
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling template request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling WhatsApp API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading WhatsApp API response: %w", err)
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding WhatsApp API response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("WhatsApp API error %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return "", fmt.Errorf("WhatsApp API returned HTTP %d", resp.StatusCode)
	}
	if len(parsed.Messages) == 0 || parsed.Messages[0].ID == "" {
		return "", fmt.Errorf("WhatsApp API response carried no message id")
	}
	return parsed.Messages[0].ID, nil
}
