package checkout

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/galerija/internal/model"
)

const receiptRule = "---------------------------------"

// Receipt composes the structured text receipt sent through the messaging
// handoff: timestamp, numbered purchase lines with quantity, unit price and
// subtotal, the grand total, the shipping block, and a contact address.
func Receipt(cart *model.Cart, shipping model.Address, contactEmail string, now time.Time) string {
	var b strings.Builder

	b.WriteString("Hello! I'm interested in buying this/these art pictures, let's talk about it.\n\n")
	b.WriteString("ART PURCHASE RECEIPT\n")
	b.WriteString(receiptRule + "\n")
	fmt.Fprintf(&b, "Date: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Time: %s\n\n", now.Format("15:04:05"))

	b.WriteString("SELECTED ARTWORKS:\n")
	for i, item := range cart.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.ArtPicture.Title)
		fmt.Fprintf(&b, "   Quantity: %d\n", item.Quantity)
		fmt.Fprintf(&b, "   Price per item: $%s\n", item.ArtPicture.Price)
		fmt.Fprintf(&b, "   Subtotal: $%s\n\n", item.Subtotal)
	}

	b.WriteString(receiptRule + "\n")
	fmt.Fprintf(&b, "TOTAL AMOUNT: $%s\n", cart.TotalPrice)
	b.WriteString(receiptRule + "\n\n")

	b.WriteString("SHIP TO:\n")
	b.WriteString(shipping.String() + "\n\n")

	b.WriteString("Thank you for your interest!\n")
	fmt.Fprintf(&b, "Contact: %s\n", contactEmail)

	return b.String()
}

// HandoffURL builds the wa.me link carrying the receipt text.
func HandoffURL(phone, message string) string {
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(message)
}
