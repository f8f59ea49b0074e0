// Package payments abstracts the external checkout provider behind a narrow
// interface: create a hosted session, retrieve a session by id. The rest of
// the system never sees provider types.
package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// LineItem is one sellable line of a checkout session. UnitAmount is in the
// currency's minor unit (cents).
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutRequest describes the hosted session to create.
type CheckoutRequest struct {
	SuccessURL string
	CancelURL  string
	Currency   string
	Items      []LineItem
	Metadata   map[string]string
}

// Session is the provider's view of a checkout session. Metadata round-trips
// the correlation keys set at creation time.
type Session struct {
	ID       string
	URL      string
	Metadata map[string]string
}

// Provider is the external payment collaborator.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error)
	RetrieveSession(ctx context.Context, id string) (Session, error)
}

// ProviderError carries the provider's user-facing message. Nothing else
// about the provider failure leaves this package.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return e.Message }
func (e *ProviderError) Unwrap() error { return e.Err }

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeProvider implements Provider on Stripe Checkout.
type StripeProvider struct {
	sessions sessionAPI
}

// NewStripeProvider builds a provider from an API key.
func NewStripeProvider(apiKey string) (*StripeProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("stripe: api key is required")
	}
	sc := client.New(apiKey, nil)
	return &StripeProvider{sessions: sc.CheckoutSessions}, nil
}

// newStripeProviderWithAPI is the test seam: it accepts a fake session API.
func newStripeProviderWithAPI(api sessionAPI) *StripeProvider {
	return &StripeProvider{sessions: api}
}

// CreateCheckoutSession creates a hosted payment session and returns its id,
// redirect URL and metadata.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if len(req.Metadata) > 0 {
		params.Metadata = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			params.Metadata[k] = v
		}
	}
	for _, item := range req.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(qty),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	s, err := p.sessions.New(params)
	if err != nil {
		return Session{}, translateStripeErr(err)
	}
	return fromStripeSession(s), nil
}

// RetrieveSession fetches a session by id.
func (p *StripeProvider) RetrieveSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sessions.Get(id, params)
	if err != nil {
		return Session{}, translateStripeErr(err)
	}
	return fromStripeSession(s), nil
}

func fromStripeSession(s *stripe.CheckoutSession) Session {
	out := Session{ID: s.ID, URL: s.URL}
	if len(s.Metadata) > 0 {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func translateStripeErr(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = "payment provider request failed"
		}
		return &ProviderError{Message: msg, Err: err}
	}
	return &ProviderError{Message: "payment provider unavailable", Err: err}
}
