package payment

import (
	"encoding/json"
	"fmt"
)

// Event types delivered by the gateway that this service acts on.
const (
	EventCheckoutSessionPaid = "checkout_session.payment.paid"
	EventPaymentPaid         = "payment.paid"
)

// WebhookEvent is the provider notification reduced to the fields the
// lifecycle manager needs. Raw keeps the exact bytes received for audit.
type WebhookEvent struct {
	EventID           string
	Type              string
	OrderCode         string
	CheckoutSessionID string
	GatewayPaymentID  string
	Raw               []byte
}

// Paid reports whether the event signifies a settled payment.
func (e *WebhookEvent) Paid() bool {
	return e.Type == EventCheckoutSessionPaid || e.Type == EventPaymentPaid
}

type webhookEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string `json:"type"`
			Data struct {
				ID         string `json:"id"`
				Attributes struct {
					ReferenceNumber string `json:"reference_number"`
					Payments        []struct {
						ID string `json:"id"`
					} `json:"payments"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a raw provider event body. Signature verification
// must already have run against the same bytes.
func ParseWebhookEvent(raw []byte) (*WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if envelope.Data.ID == "" {
		return nil, fmt.Errorf("webhook event missing id")
	}

	event := &WebhookEvent{
		EventID:           envelope.Data.ID,
		Type:              envelope.Data.Attributes.Type,
		OrderCode:         envelope.Data.Attributes.Data.Attributes.ReferenceNumber,
		CheckoutSessionID: envelope.Data.Attributes.Data.ID,
		Raw:               raw,
	}
	if payments := envelope.Data.Attributes.Data.Attributes.Payments; len(payments) > 0 {
		event.GatewayPaymentID = payments[0].ID
	}
	return event, nil
}
