package paystack

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sodiqbhoy1/wears/app/models"
)

const (
	EventChargeSuccess = "charge.success"
	StatusSuccess      = "success"
)

// Event is the subset of a Paystack webhook body the store consumes.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

type EventData struct {
	ID        json.Number `json:"id"`
	Status    string      `json:"status"`
	Reference string      `json:"reference"`
	// Amount is in minor units (kobo for NGN).
	Amount   float64  `json:"amount"`
	Currency string   `json:"currency"`
	Metadata Metadata `json:"metadata"`
	Customer struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
	} `json:"customer"`
}

// Metadata is what the storefront attached when it initialised the payment.
type Metadata struct {
	Customer models.Customer `json:"customer"`
	Items    []Item          `json:"items"`
}

// Paystack sends metadata as an empty string when none was set.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		*m = Metadata{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		return m.UnmarshalJSON([]byte(inner))
	}
	type plain Metadata
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Metadata(p)
	return nil
}

// Item accepts the field spellings different cart versions used.
type Item struct {
	ProductRef string
	Name       string
	Qty        int
	UnitPrice  float64
	Size       string
	Color      string
}

func (i *Item) UnmarshalJSON(b []byte) error {
	var raw struct {
		ProductRef string     `json:"productRef"`
		ID         flexString `json:"id"`
		ProductID  flexString `json:"productId"`
		Name       string     `json:"name"`
		Title      string     `json:"title"`
		Qty        flexNumber `json:"qty"`
		Quantity   flexNumber `json:"quantity"`
		UnitPrice  flexNumber `json:"unitPrice"`
		Price      flexNumber `json:"price"`
		Size       string     `json:"size"`
		Color      string     `json:"color"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*i = Item{
		ProductRef: firstNonEmpty(raw.ProductRef, string(raw.ProductID), string(raw.ID)),
		Name:       firstNonEmpty(raw.Name, raw.Title),
		Qty:        int(raw.Qty),
		UnitPrice:  float64(raw.UnitPrice),
		Size:       strings.TrimSpace(raw.Size),
		Color:      strings.TrimSpace(raw.Color),
	}
	if i.Qty == 0 {
		i.Qty = int(raw.Quantity)
	}
	if i.Qty <= 0 {
		i.Qty = 1
	}
	if i.UnitPrice == 0 {
		i.UnitPrice = float64(raw.Price)
	}
	return nil
}

// ParseEvent decodes a webhook body.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode paystack event: %w", err)
	}
	ev.Event = strings.TrimSpace(ev.Event)
	ev.Data.Reference = strings.TrimSpace(ev.Data.Reference)
	if ev.Event == "" {
		return nil, errors.New("paystack event missing event type")
	}
	return &ev, nil
}

// IsSuccessfulCharge reports whether the event confirms a completed payment.
func (e *Event) IsSuccessfulCharge() bool {
	return e.Event == EventChargeSuccess && strings.EqualFold(e.Data.Status, StatusSuccess)
}

// EventID identifies the delivery for the audit log.
func (e *Event) EventID() string {
	if id := e.Data.ID.String(); id != "" {
		return e.Event + ":" + id
	}
	return e.Event + ":" + e.Data.Reference
}

// MajorAmount converts the minor unit amount.
func (e *Event) MajorAmount() float64 {
	return e.Data.Amount / 100
}

// Customer merges the storefront metadata with Paystack's own customer block.
func (e *Event) Customer() models.Customer {
	c := e.Data.Metadata.Customer
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" {
		c.Email = strings.TrimSpace(e.Data.Customer.Email)
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = strings.TrimSpace(e.Data.Customer.FirstName + " " + e.Data.Customer.LastName)
	}
	if c.Phone == "" {
		c.Phone = e.Data.Customer.Phone
	}
	return c
}

// OrderItems maps metadata items onto order lines.
func (e *Event) OrderItems() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(e.Data.Metadata.Items))
	for _, it := range e.Data.Metadata.Items {
		items = append(items, models.OrderItem{
			ProductRef: it.ProductRef,
			Name:       it.Name,
			Qty:        it.Qty,
			UnitPrice:  it.UnitPrice,
			Size:       it.Size,
			Color:      it.Color,
		})
	}
	return items
}

type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = flexNumber(v)
	return nil
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	v := strings.TrimSpace(string(b))
	if v == "null" {
		*s = ""
		return nil
	}
	*s = flexString(strings.TrimSpace(strings.Trim(v, `"`)))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
