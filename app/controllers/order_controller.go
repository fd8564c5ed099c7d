package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/delivery"
	"github.com/sodiqbhoy1/wears/internal/pkg/orders"
)

// OrderController serves the storefront order endpoints
type OrderController struct {
	service   *orders.Service
	deliverer *delivery.Deliverer
}

// NewOrderController creates a new order controller
func NewOrderController(service *orders.Service, deliverer *delivery.Deliverer) *OrderController {
	return &OrderController{
		service:   service,
		deliverer: deliverer,
	}
}

// HandleCreateOrder is called by the storefront right after the payment
// widget reported success. Repeated calls for one reference return the
// order that already exists.
func (oc *OrderController) HandleCreateOrder(c *fiber.Ctx) error {
	var in orders.ClientOrderInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := oc.service.CreateFromClient(c.UserContext(), in)
	if err != nil {
		if orders.IsValidation(err) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		log.Errorf("[Orders] Failed to create order %s: %v", in.Reference, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to create order")
	}

	body := fiber.Map{"order": res.Order}
	if res.Message != "" {
		body["message"] = res.Message
	}
	return jsonOK(c, body)
}

// publicOrder is what the tracking page may show.
type publicOrder struct {
	ID        uint               `json:"id"`
	Reference string             `json:"reference"`
	Amount    float64            `json:"amount"`
	Currency  string             `json:"currency"`
	Status    string             `json:"status"`
	Paid      bool               `json:"paid"`
	CreatedAt time.Time          `json:"createdAt"`
	Customer  models.Customer    `json:"customer"`
	Items     []models.OrderItem `json:"items"`
}

// HandleTrackOrder looks an order up by its tracking code.
func (oc *OrderController) HandleTrackOrder(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return jsonError(c, fiber.StatusBadRequest, "Tracking code is required")
	}

	order, err := oc.service.FindByReference(c.UserContext(), code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Order not found. Please check your tracking code and try again.")
		}
		log.Errorf("[Orders] Tracking lookup for %s failed: %v", code, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load order")
	}

	status := order.Status
	if status == "" {
		status = models.ORDER_STATUS_PENDING
	}
	items := []models.OrderItem(order.Items)
	if items == nil {
		items = []models.OrderItem{}
	}
	return jsonOK(c, fiber.Map{"order": publicOrder{
		ID:        order.ID,
		Reference: order.Reference,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Status:    status,
		Paid:      order.Paid,
		CreatedAt: order.CreatedAt,
		Customer:  order.Customer,
		Items:     items,
	}})
}

type resendRequest struct {
	ID        uint   `json:"id"`
	Reference string `json:"reference"`
}

// HandleResendOrderEmail sends the confirmation again on operator request,
// regardless of the automatic attempt budget.
func (oc *OrderController) HandleResendOrderEmail(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Reference = strings.TrimSpace(req.Reference)
	if req.ID == 0 && req.Reference == "" {
		return jsonError(c, fiber.StatusBadRequest, "id or reference required")
	}

	ctx := c.UserContext()
	var (
		order *models.Order
		err   error
	)
	if req.ID != 0 {
		order, err = oc.service.FindByID(ctx, req.ID)
	} else {
		order, err = oc.service.FindByReference(ctx, req.Reference)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Order not found")
		}
		log.Errorf("[Orders] Resend lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load order")
	}

	if !order.HasCustomerEmail() {
		return jsonError(c, fiber.StatusBadRequest, "Order has no customer email")
	}

	out := oc.deliverer.Resend(ctx, order)
	return jsonOK(c, fiber.Map{"result": out})
}
