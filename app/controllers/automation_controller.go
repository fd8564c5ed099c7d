package controllers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/mail"
	"github.com/sodiqbhoy1/wears/internal/pkg/notification"
	"github.com/sodiqbhoy1/wears/internal/pkg/reconcile"
)

const sampleOrderReference = "FJTEST1234"

// Sweeper is the reconciliation pass the automation endpoints drive.
type Sweeper interface {
	Run(ctx context.Context, trigger string) (reconcile.Summary, error)
	Pending(ctx context.Context) (int64, error)
}

// ConfirmationSender composes and sends a confirmation email.
type ConfirmationSender interface {
	Send(ctx context.Context, order *models.Order) notification.Result
	ConfigStatus() mail.Status
}

// DeliveryStats reports today's send counters.
type DeliveryStats interface {
	Today(ctx context.Context) (map[string]int64, error)
}

// AutomationController exposes the email sweep to operators and schedulers
type AutomationController struct {
	sweeper   Sweeper
	sender    ConfirmationSender
	testToken string
	testTo    string
	stats     DeliveryStats
}

// NewAutomationController creates the controller. testToken guards the
// sample email endpoint, which sends to testTo.
func NewAutomationController(sweeper Sweeper, sender ConfirmationSender, testToken, testTo string) *AutomationController {
	return &AutomationController{
		sweeper:   sweeper,
		sender:    sender,
		testToken: testToken,
		testTo:    testTo,
	}
}

// WithStats adds today's counters to the status response.
func (ac *AutomationController) WithStats(stats DeliveryStats) *AutomationController {
	ac.stats = stats
	return ac
}

// HandleEmailAutomationStatus is the health check: pending count and whether
// outbound email is configured at all.
func (ac *AutomationController) HandleEmailAutomationStatus(c *fiber.Ctx) error {
	pending, err := ac.sweeper.Pending(c.UserContext())
	if err != nil {
		log.Errorf("[Sweeper] Pending count failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to count pending emails")
	}

	status := ac.sender.ConfigStatus()
	message := "No orders need emails"
	if pending > 0 {
		message = fmt.Sprintf("%d orders need confirmation emails", pending)
	}
	body := fiber.Map{
		"pendingEmails":   pending,
		"emailConfigured": status.Configured,
		"email":           status,
		"message":         message,
		"timestamp":       time.Now().UTC(),
	}
	if ac.stats != nil {
		if today, err := ac.stats.Today(c.UserContext()); err != nil {
			log.Warnf("[Sweeper] Reading delivery counters failed: %v", err)
		} else {
			body["today"] = today
		}
	}
	return jsonOK(c, body)
}

// HandleEmailAutomationRun executes one sweep pass.
func (ac *AutomationController) HandleEmailAutomationRun(c *fiber.Ctx) error {
	summary, status, err := ac.runSweep(c.UserContext(), models.EMAIL_TRIGGER_SWEEP)
	if err != nil {
		return jsonError(c, status, err.Error())
	}
	return jsonOK(c, sweepBody(summary))
}

// HandleCronEmailCheck is the external scheduler entry point. CronAuth runs
// in front of it.
func (ac *AutomationController) HandleCronEmailCheck(c *fiber.Ctx) error {
	summary, status, err := ac.runSweep(c.UserContext(), models.EMAIL_TRIGGER_CRON)
	if err != nil {
		return jsonError(c, status, err.Error())
	}
	return jsonOK(c, fiber.Map{
		"cronTriggered":    true,
		"automationResult": sweepBody(summary),
		"timestamp":        time.Now().UTC(),
	})
}

func (ac *AutomationController) runSweep(ctx context.Context, trigger string) (reconcile.Summary, int, error) {
	summary, err := ac.sweeper.Run(ctx, trigger)
	switch {
	case errors.Is(err, reconcile.ErrSweepRunning):
		return summary, fiber.StatusConflict, err
	case err != nil:
		log.Errorf("[Sweeper] Sweep (%s) failed: %v", trigger, err)
		return summary, fiber.StatusInternalServerError, errors.New("email sweep failed")
	}
	return summary, fiber.StatusOK, nil
}

func sweepBody(summary reconcile.Summary) fiber.Map {
	return fiber.Map{
		"message":   summary.Message(),
		"summary":   summary,
		"results":   summary.Results,
		"timestamp": summary.Timestamp,
	}
}

// HandleTestEmail sends a sample confirmation so operators can check SMTP
// settings. Disabled unless EMAIL_TEST_TOKEN is set.
func (ac *AutomationController) HandleTestEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if ac.testToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(ac.testToken)) != 1 {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	order := &models.Order{
		Reference: sampleOrderReference,
		Amount:    2500,
		Currency:  models.DEFAULT_CURRENCY,
		Customer:  models.Customer{Name: "Test User", Email: ac.testTo},
		Items:     []models.OrderItem{{Name: "Signature Tee", Qty: 1, UnitPrice: 2500, Size: "M", Color: "Black"}},
		Status:    models.ORDER_STATUS_PENDING,
		Paid:      true,
		CreatedAt: time.Now().UTC(),
	}
	result := ac.sender.Send(c.UserContext(), order)
	return jsonOK(c, fiber.Map{"result": result})
}
