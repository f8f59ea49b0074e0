// Package queue defines the notification events exchanged over the message
// broker and the publisher/consumer pair that carries them. Events are
// fire-and-forget: a broker failure is logged and never fails the request
// that produced the event.
package queue

import "encoding/json"

// Queue and event type names. All notification events share one durable
// queue; Envelope.Type selects the payload.
const (
	NotificationsQueue = "notifications.email"

	TypePaymentSucceeded = "payment.succeeded"
	TypeAccountActivate  = "account.activation"
	TypePasswordReset    = "account.password_reset"
)

// Envelope wraps a typed payload for transport.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PaymentSucceededEvent is published after a settlement commits. Amount is a
// decimal string; consumers never do money arithmetic.
type PaymentSucceededEvent struct {
	PaymentID uint64 `json:"payment_id"`
	OrderID   uint64 `json:"order_id"`
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Amount    string `json:"amount"`
	PaidAt    string `json:"paid_at"`
}

// AccountTokenEvent carries an activation or password-reset token to the
// email dispatcher. Token is the raw token; only its hash is stored.
type AccountTokenEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
