package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/config"
	"github.com/erazemk/galerija/internal/payment"
	"github.com/erazemk/galerija/internal/persist"
	"github.com/erazemk/galerija/internal/store"
)

// levelRouter is a slog.Handler that routes records below ERROR to stdout
// and ERROR+ to stderr, dropping anything below its threshold.
type levelRouter struct {
	level  slog.Level
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.level
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		level:  lr.level,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		level:  lr.level,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. WARN goes to stdout, ERROR to
// stderr; -verbose lowers the threshold to DEBUG. If logPath is non-empty,
// all levels are also written to that file. Returns a cleanup function that
// closes the log file (if opened).
func setupLogger(logPath string, verbose bool) (func(), error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		level:  level,
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// app bundles the wired stores for the command handlers.
type app struct {
	cfg      *config.Config
	state    *persist.State
	client   *client.Client
	auth     *store.Auth
	catalog  *store.Catalog
	cart     *store.Cart
	orders   *store.Orders
	views    *store.OrderView
	messages *store.Messages
}

// newApp wires the client and stores, rehydrating persisted session and
// cart state.
func newApp(cfg *config.Config) (*app, error) {
	state, err := persist.Open(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("opening local state: %w", err)
	}

	a := &app{cfg: cfg, state: state}
	a.client = client.New(cfg.APIBaseURL, state, client.WithSessionExpired(func() {
		if a.auth != nil {
			a.auth.Expire()
		}
		fmt.Fprintln(os.Stderr, "Session expired, please log in again.")
	}))

	var tokenizer payment.Tokenizer
	if cfg.StripeKey != "" {
		tokenizer = payment.NewStripeTokenizer(cfg.StripeKey)
	}

	a.auth = store.NewAuth(a.client, state, state)
	a.catalog = store.NewCatalog(a.client)
	a.cart = store.NewCart(a.client, state)
	a.orders = store.NewOrders(a.client, tokenizer)
	a.views = store.NewOrderView(a.client)
	a.messages = store.NewMessages(a.client)

	if user, err := state.LoadSession(); err == nil && user != nil {
		a.auth.Rehydrate(user)
	}
	if cart, err := state.LoadCart(); err == nil && cart != nil {
		a.cart.Rehydrate(cart)
	}

	return a, nil
}

func (a *app) close() {
	if err := a.state.Close(); err != nil {
		slog.Warn("closing local state", "error", err)
	}
}

func usage() {
	fmt.Fprint(os.Stdout, `Usage: galerija [flags] <command> [command flags]

Commands:
  login      log in with username and password
  logout     end the session and clear local state
  register   create an account and log in
  whoami     show the active session
  gallery    browse the art catalog
  art        manage catalog entries (admin)
  cart       show and edit the shopping cart
  checkout   place an order from the cart
  pay        pay for a pending order by card
  orders     list orders, remove, restore, or update them
  dashboard  show order statistics (admin)
  report     per-order and per-user purchase reports (admin)
  messages   read and send messages

Flags:
  -l, -log <path>   also write logs to a file
  -v, -verbose      debug logging
  -h, -help         show this help and exit

Environment:
  GALERIJA_API_URL          API base URL (default: http://localhost:8000)
  GALERIJA_STATE            local state file (default: galerija.sqlite3)
  GALERIJA_WHATSAPP_PHONE   checkout handoff number, digits only
  GALERIJA_CONTACT_EMAIL    contact address printed on receipts
  GALERIJA_STRIPE_KEY       Stripe publishable key for card payments
`)
}

func exitCodeForFlagErr(err error) int {
	if err == flag.ErrHelp {
		return 0
	}
	return 1
}

func main() {
	fs := flag.NewFlagSet("galerija", flag.ContinueOnError)

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var verbose bool
	fs.BoolVar(&verbose, "verbose", false, "")
	fs.BoolVar(&verbose, "v", false, "")

	fs.Usage = usage

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(exitCodeForFlagErr(err))
	}

	if fs.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(logPath, verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	a, err := newApp(config.Load())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx := context.Background()
	if err := dispatch(ctx, a, fs.Args()[0], fs.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
