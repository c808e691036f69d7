// Package checkout holds the checkout form, its client-side validation, and
// the text-receipt handoff to the external messaging channel. Validation
// failures never reach the network layer.
package checkout

import (
	"regexp"
	"strings"

	"github.com/erazemk/galerija/internal/model"
)

// usZipPattern matches 5-digit US zip codes with an optional +4 suffix.
var usZipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// Form is the checkout input. When SameAsShipping is set the billing block
// is ignored and the shipping address is used for both.
type Form struct {
	Shipping       model.Address
	Billing        model.Address
	SameAsShipping bool
	PaymentMethod  string
}

// Request is the body posted to /api/orders/checkout/.
type Request struct {
	ShippingAddress string        `json:"shipping_address"`
	BillingAddress  string        `json:"billing_address"`
	ShippingData    model.Address `json:"shipping_address_data"`
	BillingData     model.Address `json:"billing_address_data"`
	PaymentMethod   string        `json:"payment_method"`
}

// Validate checks the form client-side and returns field-keyed messages.
// An empty map means the form may be submitted.
func (f Form) Validate() map[string]string {
	errs := make(map[string]string)

	validateAddress(errs, "shipping", f.Shipping)
	if !f.SameAsShipping {
		validateAddress(errs, "billing", f.Billing)
	}

	switch f.PaymentMethod {
	case model.PaymentMethodCreditCard, model.PaymentMethodPayPal:
	case "":
		errs["payment_method"] = "Payment method is required"
	default:
		errs["payment_method"] = "Unknown payment method"
	}

	return errs
}

func validateAddress(errs map[string]string, prefix string, addr model.Address) {
	if strings.TrimSpace(addr.Street) == "" {
		errs[prefix+"_street"] = "Street address is required"
	}
	if strings.TrimSpace(addr.City) == "" {
		errs[prefix+"_city"] = "City is required"
	}
	if strings.TrimSpace(addr.State) == "" {
		errs[prefix+"_state"] = "State is required"
	}
	zip := strings.TrimSpace(addr.Zipcode)
	switch {
	case zip == "":
		errs[prefix+"_zipcode"] = "Zip code is required"
	case addr.Country == "United States" && !usZipPattern.MatchString(zip):
		errs[prefix+"_zipcode"] = "Invalid US zip code format"
	}
}

// Payload builds the checkout request, resolving the billing shortcut.
func (f Form) Payload() Request {
	billing := f.Billing
	if f.SameAsShipping {
		billing = f.Shipping
	}
	return Request{
		ShippingAddress: f.Shipping.String(),
		BillingAddress:  billing.String(),
		ShippingData:    f.Shipping,
		BillingData:     billing,
		PaymentMethod:   f.PaymentMethod,
	}
}
