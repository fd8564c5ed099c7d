package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/sodiqbhoy1/wears/internal/pkg/orders"
	"github.com/sodiqbhoy1/wears/internal/pkg/paystack"
)

// WebhookController receives Paystack server callbacks
type WebhookController struct {
	service *orders.Service
	secret  string
}

// NewWebhookController creates the webhook controller. With an empty secret
// signatures are not checked.
func NewWebhookController(service *orders.Service, secret string) *WebhookController {
	if secret == "" {
		log.Warn("[Webhook] PAYSTACK_WEBHOOK_SECRET is not set, webhook signatures are NOT verified")
	}
	return &WebhookController{
		service: service,
		secret:  secret,
	}
}

// HandlePaystackWebhook verifies and ingests one gateway event. Gateways
// redeliver freely, a known reference answers 200 without side effects.
func (wc *WebhookController) HandlePaystackWebhook(c *fiber.Ctx) error {
	// Fiber reuses the body buffer after the handler returns.
	payload := append([]byte(nil), c.Body()...)

	signatureValid := false
	if wc.secret != "" {
		signatureValid = paystack.VerifySignature(payload, c.Get(paystack.SignatureHeader), wc.secret)
		if !signatureValid {
			log.Warnf("[Webhook] Rejected webhook from %s: invalid signature", c.IP())
			return jsonError(c, fiber.StatusUnauthorized, "Invalid signature")
		}
	}

	ev, err := paystack.ParseEvent(payload)
	if err != nil {
		log.Warnf("[Webhook] Unreadable webhook body: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "Invalid webhook payload")
	}

	ctx := c.UserContext()
	audit := wc.service.RecordWebhook(ctx, ev, payload, signatureValid)
	res, err := wc.service.CreateFromWebhook(ctx, ev)
	wc.service.FinishWebhook(ctx, audit, err)
	if err != nil {
		if orders.IsValidation(err) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		log.Errorf("[Webhook] Failed to ingest %s for %s: %v", ev.Event, ev.Data.Reference, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to process webhook")
	}

	if res.Ignored {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": false, "message": res.Message})
	}

	body := fiber.Map{"order": res.Order}
	if res.AlreadyExists {
		body["alreadyExists"] = true
		body["message"] = res.Message
	}
	return jsonOK(c, body)
}
