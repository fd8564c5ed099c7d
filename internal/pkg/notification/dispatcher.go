package notification

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/template/html/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/mail"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	confirmationTemplate = "order_confirmation"
	defaultSendTimeout   = 30 * time.Second

	ErrMsgNoCustomerEmail = "no customer email provided"
	ErrMsgNotConfigured   = "email service not configured"
)

// Result is the outcome of one send. Dispatchers never return errors,
// failures are carried in Error.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Options configures the dispatcher.
type Options struct {
	StoreName   string
	BaseURL     string
	SendTimeout time.Duration
	Status      mail.Status
}

// Dispatcher composes and sends order confirmation emails.
type Dispatcher struct {
	mailer  mail.Mailer
	engine  *html.Engine
	opts    Options
	printer *message.Printer
}

func NewDispatcher(mailer mail.Mailer, opts Options) (*Dispatcher, error) {
	if opts.StoreName == "" {
		opts.StoreName = "WearHouse"
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}

	return &Dispatcher{
		mailer:  mailer,
		engine:  engine,
		opts:    opts,
		printer: message.NewPrinter(language.English),
	}, nil
}

// ConfigStatus reports whether outbound email can work at all.
func (d *Dispatcher) ConfigStatus() mail.Status {
	return d.opts.Status
}

// Send delivers the confirmation email for order.
func (d *Dispatcher) Send(ctx context.Context, order *models.Order) (res Result) {
	if order == nil || !order.HasCustomerEmail() {
		return Result{Success: false, Error: ErrMsgNoCustomerEmail}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Notification] Panic while sending confirmation for %s: %v", order.Reference, r)
			res = Result{Success: false, Error: fmt.Sprintf("email send panic: %v", r)}
		}
	}()

	if !d.opts.Status.Configured {
		log.Error("[Notification] Email not configured, missing SMTP credentials")
		return Result{Success: false, Error: ErrMsgNotConfigured}
	}

	msg, err := d.Compose(order)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()
	if err := d.mailer.Send(sendCtx, msg); err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			return Result{Success: false, Error: ErrMsgNotConfigured}
		}
		log.Warnf("[Notification] Confirmation for %s to %s failed: %v", order.Reference, order.Customer.Email, err)
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true}
}

// Compose renders the confirmation message without sending it.
func (d *Dispatcher) Compose(order *models.Order) (mail.Message, error) {
	view := d.viewFor(order)

	var htmlBody bytes.Buffer
	if err := d.engine.Render(&htmlBody, confirmationTemplate, view); err != nil {
		return mail.Message{}, fmt.Errorf("render confirmation email: %w", err)
	}

	return mail.Message{
		To:       strings.TrimSpace(order.Customer.Email),
		Subject:  fmt.Sprintf("Order Confirmation - Tracking Code: %s", order.Reference),
		TextBody: d.textBody(view),
		HTMLBody: htmlBody.String(),
		Headers:  map[string]string{"X-Order-Reference": order.Reference},
	}, nil
}

// TrackingURL links to the public tracking page for reference.
func (d *Dispatcher) TrackingURL(reference string) string {
	return fmt.Sprintf("%s/track-order?code=%s", d.opts.BaseURL, url.QueryEscape(reference))
}

type lineView struct {
	Name      string
	Variant   string
	Qty       int
	UnitPrice string
	Amount    string
}

type orderView struct {
	StoreName    string
	CustomerName string
	Reference    string
	OrderDate    string
	Lines        []lineView
	Total        string
	TrackingURL  string
}

func (d *Dispatcher) viewFor(order *models.Order) orderView {
	name := strings.TrimSpace(order.Customer.Name)
	if name == "" {
		name = "valued customer"
	}
	created := order.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	view := orderView{
		StoreName:    d.opts.StoreName,
		CustomerName: name,
		Reference:    order.Reference,
		OrderDate:    created.Format("January 2, 2006"),
		Total:        d.money(order.Currency, order.Total()),
		TrackingURL:  d.TrackingURL(order.Reference),
	}
	for _, item := range order.Items {
		qty := item.Qty
		if qty <= 0 {
			qty = 1
		}
		var variant []string
		if item.Size != "" {
			variant = append(variant, "Size "+item.Size)
		}
		if item.Color != "" {
			variant = append(variant, item.Color)
		}
		view.Lines = append(view.Lines, lineView{
			Name:      item.Name,
			Variant:   strings.Join(variant, ", "),
			Qty:       qty,
			UnitPrice: d.money(order.Currency, item.UnitPrice),
			Amount:    d.money(order.Currency, item.UnitPrice*float64(qty)),
		})
	}
	return view
}

func (d *Dispatcher) textBody(v orderView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order Confirmation - %s\n\n", v.StoreName)
	fmt.Fprintf(&b, "Hello %s,\n\n", v.CustomerName)
	b.WriteString("Thank you for your order! Your payment has been received.\n\n")
	b.WriteString("ORDER DETAILS:\n")
	fmt.Fprintf(&b, "- Order ID: %s\n", v.Reference)
	fmt.Fprintf(&b, "- Order Date: %s\n", v.OrderDate)
	fmt.Fprintf(&b, "- Total: %s\n\n", v.Total)
	fmt.Fprintf(&b, "TRACKING CODE: %s\n", v.Reference)
	fmt.Fprintf(&b, "Track your order at: %s\n\n", v.TrackingURL)
	b.WriteString("ORDER ITEMS:\n")
	for _, l := range v.Lines {
		name := l.Name
		if l.Variant != "" {
			name += " (" + l.Variant + ")"
		}
		fmt.Fprintf(&b, "- %s x %d = %s\n", name, l.Qty, l.Amount)
	}
	fmt.Fprintf(&b, "\n%s\n", v.StoreName)
	return b.String()
}

func (d *Dispatcher) money(currency string, amount float64) string {
	formatted := d.printer.Sprintf("%.2f", amount)
	switch strings.ToUpper(currency) {
	case "", "NGN":
		return "₦" + formatted
	case "USD":
		return "$" + formatted
	default:
		return strings.ToUpper(currency) + " " + formatted
	}
}
