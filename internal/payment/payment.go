// Package payment exchanges card details for an opaque payment token that
// the order store forwards to the process_payment endpoint. The card network
// is an external collaborator; only the tokenize call lives here.
package payment

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
)

// Card is the raw card input collected at checkout. It is never sent to the
// storefront API, only to the tokenization provider.
type Card struct {
	Number   string
	ExpMonth string
	ExpYear  string
	CVC      string
}

// Tokenizer turns card details into a single-use payment token.
type Tokenizer interface {
	Tokenize(ctx context.Context, card Card) (string, error)
}

// StripeTokenizer tokenizes against the Stripe API.
type StripeTokenizer struct {
	api *stripeclient.API
}

// NewStripeTokenizer creates a tokenizer using the given publishable key.
func NewStripeTokenizer(key string) *StripeTokenizer {
	api := &stripeclient.API{}
	api.Init(key, nil)
	return &StripeTokenizer{api: api}
}

// Tokenize creates a Stripe card token.
func (s *StripeTokenizer) Tokenize(ctx context.Context, card Card) (string, error) {
	params := &stripe.TokenParams{
		Card: &stripe.CardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.String(card.ExpMonth),
			ExpYear:  stripe.String(card.ExpYear),
			CVC:      stripe.String(card.CVC),
		},
	}
	params.Context = ctx

	token, err := s.api.Tokens.New(params)
	if err != nil {
		return "", fmt.Errorf("creating card token: %w", err)
	}
	return token.ID, nil
}
