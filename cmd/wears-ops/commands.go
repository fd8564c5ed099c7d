package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/cache"
	"github.com/sodiqbhoy1/wears/internal/pkg/database"
	"github.com/sodiqbhoy1/wears/internal/pkg/delivery"
	"github.com/sodiqbhoy1/wears/internal/pkg/env"
	"github.com/sodiqbhoy1/wears/internal/pkg/reconcile"
	"github.com/sodiqbhoy1/wears/internal/pkg/services"
)

// loadServices connects to MySQL and Redis the same way the server does.
func loadServices() (*services.Services, error) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	return services.Build(database.GetDB(), services.Options{UseRedis: true})
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Retry confirmation emails for recent paid orders that never got one",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			asJSON, _ := cmd.Flags().GetBool("json")
			return runSweep(cmd.Context(), cmd.OutOrStdout(), svc.Sweeper, asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "Print the summary as JSON")
	return cmd
}

func pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Count orders waiting for a confirmation email",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			return runPending(cmd.Context(), cmd.OutOrStdout(), svc.Sweeper)
		},
	}
}

func resendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resend",
		Short: "Send the confirmation email of one order again",
		RunE: func(cmd *cobra.Command, args []string) error {
			reference, _ := cmd.Flags().GetString("reference")
			id, _ := cmd.Flags().GetUint("id")
			if id == 0 && strings.TrimSpace(reference) == "" {
				return errors.New("pass --reference or --id")
			}
			svc, err := loadServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			return runResend(cmd.Context(), cmd.OutOrStdout(), svc.Repos.Order, svc.Deliverer, reference, id)
		},
	}
	cmd.Flags().StringP("reference", "r", "", "Order reference (tracking code)")
	cmd.Flags().Uint("id", 0, "Order ID")
	return cmd
}

type sweeper interface {
	Run(ctx context.Context, trigger string) (reconcile.Summary, error)
	Pending(ctx context.Context) (int64, error)
}

func runSweep(ctx context.Context, w io.Writer, s sweeper, asJSON bool) error {
	summary, err := s.Run(ctx, models.EMAIL_TRIGGER_SWEEP)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintln(w, summary.Message())
	fmt.Fprintf(w, "  sent: %d  failed: %d  skipped: %d\n", summary.Succeeded, summary.Failed, summary.Skipped)
	for _, r := range summary.Results {
		line := fmt.Sprintf("  %-14s %-8s %s", r.Reference, r.Status, r.Email)
		if r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func runPending(ctx context.Context, w io.Writer, s sweeper) error {
	n, err := s.Pending(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d orders need confirmation emails\n", n)
	return nil
}

type orderFinder interface {
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	FindByID(ctx context.Context, id uint) (*models.Order, error)
}

type resender interface {
	Resend(ctx context.Context, order *models.Order) delivery.Outcome
}

func runResend(ctx context.Context, w io.Writer, finder orderFinder, r resender, reference string, id uint) error {
	var (
		order *models.Order
		err   error
	)
	if id != 0 {
		order, err = finder.FindByID(ctx, id)
	} else {
		order, err = finder.FindByReference(ctx, strings.TrimSpace(reference))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New("order not found")
	}
	if err != nil {
		return err
	}
	if !order.HasCustomerEmail() {
		return fmt.Errorf("order %s has no customer email", order.Reference)
	}

	out := r.Resend(ctx, order)
	if out.Status != delivery.StatusSuccess {
		return fmt.Errorf("resend for %s failed: %s", order.Reference, out.Error)
	}
	fmt.Fprintf(w, "Confirmation for %s sent to %s\n", order.Reference, out.Email)
	return nil
}
