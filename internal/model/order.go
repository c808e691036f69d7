package model

import "time"

// Order statuses. Transitions are server-authoritative; the client only
// requests them.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"

	// Payment state, set by process_payment.
	OrderStatusPaid = "paid"
)

// FulfillmentStatuses is the fixed set the dashboard histogram covers.
var FulfillmentStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Payment methods accepted at checkout.
const (
	PaymentMethodCreditCard = "credit_card"
	PaymentMethodPayPal     = "paypal"
)

// Address is the structured address variant used at checkout.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`
	Country string `json:"country"`
}

// String renders the address in the legacy free-text form.
func (a Address) String() string {
	return a.Street + ", " + a.City + ", " + a.State + " " + a.Zipcode + ", " + a.Country
}

// Order mirrors a server-owned order record. Addresses come in both the
// legacy free-text and the structured form.
type Order struct {
	ID              int64       `json:"id"`
	User            int64       `json:"user"`
	OrderNumber     string      `json:"order_number"`
	Status          string      `json:"status"`
	PaymentMethod   string      `json:"payment_method"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	BillingAddress  string      `json:"billing_address,omitempty"`
	ShippingData    *Address    `json:"shipping_address_data,omitempty"`
	BillingData     *Address    `json:"billing_address_data,omitempty"`
	TotalPrice      Money       `json:"total_price"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`

	// Unsynced marks a locally re-inserted order whose restore call failed;
	// it is excluded from the committed collection until a refetch.
	Unsynced bool `json:"-"`
}

// OrderItem is a purchase line holding the price at time of purchase. The
// embedded ArtPicture is a denormalized snapshot.
type OrderItem struct {
	ID         int64      `json:"id"`
	ArtPicture ArtPicture `json:"art_picture"`
	Price      Money      `json:"price"`
	Quantity   int        `json:"quantity"`
	Subtotal   Money      `json:"subtotal"`
}
