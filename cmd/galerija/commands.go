package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/galerija/internal/checkout"
	"github.com/erazemk/galerija/internal/imaging"
	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/payment"
	"github.com/erazemk/galerija/internal/store"
	"github.com/erazemk/galerija/internal/view"
)

func dispatch(ctx context.Context, a *app, command string, args []string) error {
	switch command {
	case "login":
		return cmdLogin(ctx, a, args)
	case "logout":
		return cmdLogout(a)
	case "register":
		return cmdRegister(ctx, a, args)
	case "whoami":
		return cmdWhoami(ctx, a)
	case "gallery":
		return cmdGallery(ctx, a, args)
	case "art":
		return cmdArt(ctx, a, args)
	case "cart":
		return cmdCart(ctx, a, args)
	case "checkout":
		return cmdCheckout(ctx, a, args)
	case "pay":
		return cmdPay(ctx, a, args)
	case "orders":
		return cmdOrders(ctx, a, args)
	case "dashboard":
		return cmdDashboard(ctx, a)
	case "report":
		return cmdReport(ctx, a, args)
	case "messages":
		return cmdMessages(ctx, a, args)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func newCommandFlags(name, help string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stdout, help) }
	return fs
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newCommandFlags("login", `Usage: galerija login -u <username> -p <password>
`)
	username := fs.String("u", "", "")
	password := fs.String("p", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		fs.Usage()
		return fmt.Errorf("username and password are required")
	}

	if err := a.auth.Login(ctx, *username, *password); err != nil {
		return err
	}
	user := a.auth.User()
	fmt.Printf("Logged in as %s", user.DisplayName())
	if a.auth.IsAdmin() {
		fmt.Print(" (admin)")
	}
	fmt.Println()
	return nil
}

func cmdLogout(a *app) error {
	a.cart.Reset()
	if err := a.auth.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newCommandFlags("register", `Usage: galerija register -u <username> -e <email> -p <password> [flags]

Flags:
  -u <username>   account name
  -e <email>      email address
  -p <password>   password (min 8 characters)
  -first <name>   first name
  -last <name>    last name
`)
	username := fs.String("u", "", "")
	email := fs.String("e", "", "")
	password := fs.String("p", "", "")
	first := fs.String("first", "", "")
	last := fs.String("last", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	err := a.auth.Register(ctx, store.RegisterInput{
		Username:        *username,
		Email:           *email,
		Password:        *password,
		ConfirmPassword: *password,
		FirstName:       *first,
		LastName:        *last,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Welcome, %s! You are now logged in.\n", a.auth.User().DisplayName())
	return nil
}

func cmdWhoami(ctx context.Context, a *app) error {
	if err := a.auth.CheckStatus(ctx); err != nil {
		fmt.Println("Not logged in.")
		return nil
	}
	user := a.auth.User()
	fmt.Printf("%s <%s>", user.Username, user.Email)
	if user.IsStaff {
		fmt.Print(" [admin]")
	}
	fmt.Println()
	return nil
}

func cmdGallery(ctx context.Context, a *app, args []string) error {
	fs := newCommandFlags("gallery", `Usage: galerija gallery [flags]

Flags:
  -search <text>   match against title and description
  -min <price>     minimum price, inclusive
  -max <price>     maximum price, inclusive
  -sort <order>    newest, oldest, price-low, price-high, a-z, z-a
  -all             include unavailable pictures
`)
	search := fs.String("search", "", "")
	minPrice := fs.Float64("min", -1, "")
	maxPrice := fs.Float64("max", -1, "")
	sortOpt := fs.String("sort", string(view.SortNewest), "")
	all := fs.Bool("all", false, "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.catalog.FetchAll(ctx); err != nil {
		return err
	}

	filter := view.CatalogFilter{Search: *search}
	if *minPrice >= 0 {
		filter.MinPrice = minPrice
	}
	if *maxPrice >= 0 {
		filter.MaxPrice = maxPrice
	}

	pictures := view.FilterCatalog(a.catalog.Pictures(), filter)
	pictures = view.SortCatalog(pictures, view.SortOption(*sortOpt))

	for _, pic := range pictures {
		if !pic.IsAvailable && !*all {
			continue
		}
		marker := ""
		if !pic.IsAvailable {
			marker = " (unavailable)"
		}
		fmt.Printf("%4d  $%-10s %s%s\n", pic.ID, pic.Price, pic.Title, marker)
		if pic.Description != "" {
			fmt.Printf("      %s\n", pic.Description)
		}
	}
	return nil
}

func cmdArt(ctx context.Context, a *app, args []string) error {
	help := `Usage: galerija art <add|update|rm> [flags]

Flags:
  -id <id>        picture to update or remove
  -title <text>   title
  -desc <text>    description
  -price <n>      price
  -image <path>   image file (JPEG or PNG, downscaled before upload)
  -hidden         mark as unavailable
`
	if len(args) == 0 {
		fmt.Fprint(os.Stdout, help)
		return fmt.Errorf("missing art subcommand")
	}
	sub, args := args[0], args[1:]

	fs := newCommandFlags("art "+sub, help)
	id := fs.Int64("id", 0, "")
	title := fs.String("title", "", "")
	desc := fs.String("desc", "", "")
	price := fs.Float64("price", 0, "")
	imagePath := fs.String("image", "", "")
	hidden := fs.Bool("hidden", false, "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := store.ArtInput{
		Title:       *title,
		Description: *desc,
		Price:       *price,
		IsAvailable: !*hidden,
	}
	if *imagePath != "" {
		f, err := os.Open(*imagePath)
		if err != nil {
			return fmt.Errorf("opening image: %w", err)
		}
		defer f.Close()
		upload, err := imaging.PrepareUpload(f, *imagePath)
		if err != nil {
			return err
		}
		input.Image = upload
	}

	switch sub {
	case "add":
		created, err := a.catalog.Create(ctx, input)
		if err != nil {
			return err
		}
		fmt.Printf("Created picture %d: %s\n", created.ID, created.Title)
	case "update":
		if *id == 0 {
			return fmt.Errorf("art update requires -id")
		}
		updated, err := a.catalog.Update(ctx, *id, input)
		if err != nil {
			return err
		}
		fmt.Printf("Updated picture %d: %s\n", updated.ID, updated.Title)
	case "rm":
		if *id == 0 {
			return fmt.Errorf("art rm requires -id")
		}
		if err := a.catalog.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("Removed picture %d\n", *id)
	default:
		fmt.Fprint(os.Stdout, help)
		return fmt.Errorf("unknown art subcommand: %s", sub)
	}
	return nil
}

func cmdCart(ctx context.Context, a *app, args []string) error {
	help := `Usage: galerija cart [show|add|qty|rm|clear] [flags]

Flags:
  -id <picture>   picture to add
  -item <line>    cart line to change or remove
  -n <quantity>   quantity (min 1)
`
	sub := "show"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	fs := newCommandFlags("cart "+sub, help)
	picID := fs.Int64("id", 0, "")
	itemID := fs.Int64("item", 0, "")
	quantity := fs.Int("n", 1, "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "show":
		if err := a.cart.Fetch(ctx); err != nil {
			return err
		}
	case "add":
		if *picID == 0 {
			return fmt.Errorf("cart add requires -id")
		}
		if err := a.cart.AddItem(ctx, *picID, *quantity); err != nil {
			return err
		}
	case "qty":
		if *itemID == 0 {
			return fmt.Errorf("cart qty requires -item")
		}
		if err := a.cart.UpdateQuantity(ctx, *itemID, *quantity); err != nil {
			return err
		}
	case "rm":
		if *itemID == 0 {
			return fmt.Errorf("cart rm requires -item")
		}
		if err := a.cart.RemoveItem(ctx, *itemID); err != nil {
			return err
		}
	case "clear":
		if err := a.cart.Clear(ctx); err != nil {
			return err
		}
	default:
		fmt.Fprint(os.Stdout, help)
		return fmt.Errorf("unknown cart subcommand: %s", sub)
	}

	printCart(a.cart.Cart())
	return nil
}

func printCart(cart *model.Cart) {
	if cart == nil || len(cart.Items) == 0 {
		fmt.Println("Cart is empty.")
		return
	}
	for _, item := range cart.Items {
		fmt.Printf("%4d  %dx %-30s $%s\n", item.ID, item.Quantity, item.ArtPicture.Title, item.Subtotal)
	}
	fmt.Printf("      Total: $%s\n", cart.TotalPrice)
}

func cmdCheckout(ctx context.Context, a *app, args []string) error {
	fs := newCommandFlags("checkout", `Usage: galerija checkout -street <s> -city <c> -state <st> -zip <z> [flags]

Flags:
  -street, -city, -state, -zip, -country   shipping address (country defaults to United States)
  -billing "<street;city;state;zip;country>"  separate billing address
  -method <credit_card|paypal>             payment method (default credit_card)
  -handoff                                 print a WhatsApp handoff link with the receipt
`)
	street := fs.String("street", "", "")
	city := fs.String("city", "", "")
	state := fs.String("state", "", "")
	zip := fs.String("zip", "", "")
	country := fs.String("country", "United States", "")
	billing := fs.String("billing", "", "")
	method := fs.String("method", model.PaymentMethodCreditCard, "")
	handoff := fs.Bool("handoff", false, "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := checkout.Form{
		Shipping: model.Address{
			Street:  *street,
			City:    *city,
			State:   *state,
			Zipcode: *zip,
			Country: *country,
		},
		SameAsShipping: true,
		PaymentMethod:  *method,
	}
	if *billing != "" {
		addr, err := parseAddress(*billing)
		if err != nil {
			return err
		}
		form.Billing = addr
		form.SameAsShipping = false
	}

	// Snapshot the cart before checkout empties it; the receipt needs the
	// purchased lines.
	if err := a.cart.Fetch(ctx); err != nil {
		return err
	}
	cart := a.cart.Cart()

	order, err := a.orders.Checkout(ctx, form)
	if err != nil {
		return err
	}
	fmt.Printf("Order %s placed, total $%s\n", order.OrderNumber, order.TotalPrice)
	a.cart.Reset()

	if *handoff {
		phone, err := a.cfg.HandoffPhone()
		if err != nil {
			return err
		}
		receipt := checkout.Receipt(cart, form.Shipping, a.cfg.ContactEmail, time.Now())
		fmt.Println()
		fmt.Println(receipt)
		fmt.Println(checkout.HandoffURL(phone, receipt))
	}
	return nil
}

// parseAddress splits a semicolon-separated address flag.
func parseAddress(s string) (model.Address, error) {
	parts := strings.Split(s, ";")
	if len(parts) < 4 {
		return model.Address{}, fmt.Errorf("address must be street;city;state;zip[;country]")
	}
	addr := model.Address{
		Street:  strings.TrimSpace(parts[0]),
		City:    strings.TrimSpace(parts[1]),
		State:   strings.TrimSpace(parts[2]),
		Zipcode: strings.TrimSpace(parts[3]),
		Country: "United States",
	}
	if len(parts) > 4 {
		addr.Country = strings.TrimSpace(parts[4])
	}
	return addr, nil
}

func cmdPay(ctx context.Context, a *app, args []string) error {
	fs := newCommandFlags("pay", `Usage: galerija pay -order <id> -number <card> -month <mm> -year <yyyy> -cvc <n>
`)
	orderID := fs.Int64("order", 0, "")
	number := fs.String("number", "", "")
	month := fs.String("month", "", "")
	year := fs.String("year", "", "")
	cvc := fs.String("cvc", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == 0 {
		fs.Usage()
		return fmt.Errorf("pay requires -order")
	}

	err := a.orders.ProcessPayment(ctx, *orderID, payment.Card{
		Number:   *number,
		ExpMonth: *month,
		ExpYear:  *year,
		CVC:      *cvc,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Order %d paid.\n", *orderID)
	return nil
}

func cmdOrders(ctx context.Context, a *app, args []string) error {
	help := `Usage: galerija orders [list|rm|undo|status] [flags]

Flags:
  -id <id,id,...>   order ids for rm, or a single id for undo and status
  -status <status>  new status for the status subcommand
`
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	fs := newCommandFlags("orders "+sub, help)
	idList := fs.String("id", "", "")
	status := fs.String("status", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.orders.Fetch(ctx); err != nil {
		return err
	}

	switch sub {
	case "list":
		printOrders(a.orders.Orders())
		if buffered := a.orders.Undoable(); len(buffered) > 0 {
			fmt.Println("\nRemoved (undoable):")
			for _, entry := range buffered {
				fmt.Printf("%4d  %s removed at %s\n",
					entry.Order.ID, entry.Order.OrderNumber, entry.RemovedAt.Format("15:04:05"))
			}
		}
	case "rm":
		ids, err := parseIDs(*idList)
		if err != nil {
			return err
		}
		if err := a.orders.Remove(ctx, ids...); err != nil {
			return err
		}
		fmt.Printf("Removed %d order(s). Use 'orders undo -id <id>' to restore.\n", len(ids))
	case "undo":
		ids, err := parseIDs(*idList)
		if err != nil || len(ids) != 1 {
			return fmt.Errorf("orders undo requires exactly one -id")
		}
		if err := a.orders.Undo(ctx, ids[0]); err != nil {
			return err
		}
		fmt.Printf("Order %d restored.\n", ids[0])
	case "status":
		ids, err := parseIDs(*idList)
		if err != nil || len(ids) != 1 || *status == "" {
			return fmt.Errorf("orders status requires one -id and -status")
		}
		if err := a.orders.UpdateStatus(ctx, ids[0], *status); err != nil {
			return err
		}
		fmt.Printf("Order %d is now %s.\n", ids[0], *status)
	default:
		fmt.Fprint(os.Stdout, help)
		return fmt.Errorf("unknown orders subcommand: %s", sub)
	}
	return nil
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("missing -id")
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid order id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printOrders(orders []model.Order) {
	if len(orders) == 0 {
		fmt.Println("No orders.")
		return
	}
	for _, order := range orders {
		marker := ""
		if order.Unsynced {
			marker = " (unsynced)"
		}
		fmt.Printf("%4d  %-12s %-10s $%-10s %s%s\n",
			order.ID, order.OrderNumber, order.Status, order.TotalPrice,
			order.CreatedAt.Format("2006-01-02"), marker)
	}
}

func cmdDashboard(ctx context.Context, a *app) error {
	if err := a.orders.Fetch(ctx); err != nil {
		return err
	}

	stats := view.Dashboard(a.orders.Committed())
	fmt.Printf("Orders:  %d\n", stats.TotalOrders)
	fmt.Printf("Revenue: $%s\n", stats.TotalRevenue)
	fmt.Println("By status:")
	for _, status := range model.FulfillmentStatuses {
		fmt.Printf("  %-11s %d\n", status, stats.StatusCounts[status])
	}
	if len(stats.RecentOrders) > 0 {
		fmt.Println("Recent:")
		printOrders(stats.RecentOrders)
	}
	return nil
}

func cmdReport(ctx context.Context, a *app, args []string) error {
	fs := newCommandFlags("report", `Usage: galerija report [-grouped]
`)
	grouped := fs.Bool("grouped", false, "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *grouped {
		if err := a.views.FetchGrouped(ctx); err != nil {
			return err
		}
		for _, group := range a.views.Groups() {
			fmt.Printf("%s (%s): %d order(s), $%s\n",
				group.Username, group.UserInfo.DisplayName, group.OrderCount, group.TotalSpent)
			for _, row := range group.Orders {
				fmt.Printf("  %-12s %-10s $%s\n", row.OrderNumber, row.Status, row.TotalPrice)
			}
		}
		return nil
	}

	if err := a.views.Fetch(ctx); err != nil {
		return err
	}
	for _, row := range a.views.Rows() {
		fmt.Printf("%4d  %-12s %-10s $%-10s %s\n",
			row.ID, row.OrderNumber, row.Status, row.TotalPrice, row.Username)
	}
	return nil
}

func cmdMessages(ctx context.Context, a *app, args []string) error {
	help := `Usage: galerija messages [list|read|send] [flags]

Flags:
  -id <id>          message to mark as read
  -to <user id>     recipient for a direct message (admins; omit to broadcast)
  -subject <text>   message subject
  -body <text>      message content
`
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	fs := newCommandFlags("messages "+sub, help)
	id := fs.Int64("id", 0, "")
	to := fs.Int64("to", 0, "")
	subject := fs.String("subject", "", "")
	body := fs.String("body", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch sub {
	case "list":
		if err := a.messages.Fetch(ctx); err != nil {
			return err
		}
		for _, msg := range a.messages.Messages() {
			read := " "
			if !msg.IsRead {
				read = "*"
			}
			fmt.Printf("%s %4d  %-14s %s: %s\n",
				read, msg.ID, msg.MessageType, msg.SenderUsername, msg.Subject)
		}
		if unread := a.messages.Unread(); unread > 0 {
			fmt.Printf("%d unread.\n", unread)
		}
	case "read":
		if *id == 0 {
			return fmt.Errorf("messages read requires -id")
		}
		if err := a.messages.Fetch(ctx); err != nil {
			return err
		}
		if err := a.messages.MarkRead(ctx, *id); err != nil {
			return err
		}
		for _, msg := range a.messages.Messages() {
			if msg.ID == *id {
				fmt.Printf("%s\n\n%s\n", msg.Subject, msg.Content)
			}
		}
	case "send":
		if *subject == "" || *body == "" {
			return fmt.Errorf("messages send requires -subject and -body")
		}
		var err error
		if *to != 0 {
			err = a.messages.SendUser(ctx, *to, *subject, *body)
		} else if a.auth.IsAdmin() {
			err = a.messages.SendPublic(ctx, *subject, *body)
		} else {
			err = a.messages.SendUser(ctx, 0, *subject, *body)
		}
		if err != nil {
			return err
		}
		fmt.Println("Message sent.")
	default:
		fmt.Fprint(os.Stdout, help)
		return fmt.Errorf("unknown messages subcommand: %s", sub)
	}
	return nil
}
