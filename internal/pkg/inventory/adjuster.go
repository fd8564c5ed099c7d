package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/app/repository"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ItemResult is the stock outcome of one order line.
type ItemResult struct {
	ProductRef  string `json:"productRef"`
	Name        string `json:"name"`
	Qty         int    `json:"qty"`
	VariantID   uint   `json:"variantId,omitempty"`
	Decremented int    `json:"decremented"`
	Error       string `json:"error,omitempty"`

	err       error
	productID uint
}

// Err returns the underlying error, if any.
func (r ItemResult) Err() error {
	return r.err
}

// Report summarises an Apply run.
type Report struct {
	Items      []ItemResult `json:"items"`
	Failed     int          `json:"failed"`
	OutOfStock []string     `json:"outOfStock,omitempty"`
}

// Adjuster decrements variant stock for confirmed orders.
type Adjuster struct {
	products repository.ProductRepository
}

func NewAdjuster(products repository.ProductRepository) *Adjuster {
	return &Adjuster{products: products}
}

// Apply decrements stock for every order line. A failing line is logged and
// recorded in the report, remaining lines are still processed.
func (a *Adjuster) Apply(ctx context.Context, order *models.Order) Report {
	var report Report
	touched := map[uint]string{}

	for _, item := range order.Items {
		res := a.applyItem(ctx, item)
		if res.err != nil {
			res.Error = res.err.Error()
			report.Failed++
			log.Warnf("[Inventory] %s: line %q (ref %s, qty %d): %v", order.Reference, item.Name, item.ProductRef, item.Qty, res.err)
		}
		report.Items = append(report.Items, res)
		if res.VariantID != 0 && res.productID != 0 {
			touched[res.productID] = item.ProductRef
		}
	}

	for productID, ref := range touched {
		flipped, err := a.products.MarkOutOfStockIfDepleted(ctx, productID)
		if err != nil {
			log.Errorf("[Inventory] Failed to update stock status of product %s: %v", ref, err)
			continue
		}
		if flipped {
			log.Infof("[Inventory] Product %s is now out of stock", ref)
			report.OutOfStock = append(report.OutOfStock, ref)
		}
	}
	return report
}

func (a *Adjuster) applyItem(ctx context.Context, item models.OrderItem) (out ItemResult) {
	out.ProductRef = item.ProductRef
	out.Name = item.Name
	out.Qty = item.Qty

	if strings.TrimSpace(item.ProductRef) == "" {
		out.err = fmt.Errorf("%w: line has no product reference", ErrProductNotFound)
		return out
	}
	if item.Qty <= 0 {
		return out
	}

	product, err := a.products.GetByUUID(ctx, item.ProductRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out.err = ErrProductNotFound
		} else {
			out.err = fmt.Errorf("load product: %w", err)
		}
		return out
	}
	out.productID = product.ID

	variant := MatchVariant(product.Variants, item.Size, item.Color)
	if variant == nil {
		out.err = ErrVariantNotFound
		return out
	}
	out.VariantID = variant.ID

	ok, err := a.products.DecrementVariantStock(ctx, variant.ID, item.Qty)
	if err != nil {
		out.err = fmt.Errorf("decrement stock: %w", err)
		return out
	}
	if ok {
		out.Decremented = item.Qty
		return out
	}

	// Not enough left: take what remains so the variant ends at zero.
	held, err := a.products.DrainVariantStock(ctx, variant.ID)
	if err != nil {
		out.err = fmt.Errorf("drain stock: %w", err)
		return out
	}
	out.Decremented = held
	out.err = fmt.Errorf("%w: wanted %d, had %d", ErrInsufficientStock, item.Qty, held)
	return out
}

// MatchVariant picks the variant for an order line: exact size and color,
// then size alone, then the only variant of a single-variant product.
func MatchVariant(variants []models.ProductVariant, size, color string) *models.ProductVariant {
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)

	if size != "" || color != "" {
		for i := range variants {
			v := &variants[i]
			if strings.EqualFold(v.Size, size) && strings.EqualFold(v.Color, color) {
				return v
			}
		}
	}
	if size != "" {
		for i := range variants {
			if strings.EqualFold(variants[i].Size, size) {
				return &variants[i]
			}
		}
	}
	if len(variants) == 1 {
		return &variants[0]
	}
	return nil
}
