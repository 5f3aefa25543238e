package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/backend"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/config"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/log"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/services"
)

const usage = `usage: ledger <command> [flags]

commands:
  summary        -project ID
  items          -project ID
  add-item       -project ID -name NAME [-estimate 1234.56]
  add-quote      -project ID -supplier ID -amount 1234.56
  choose-quote   -project ID -quote ID
  pay            -project ID -amount 1234.56 -installments N -first YYYY-MM-DD [-item ID] [-rate 2.5] [-owner ID]
  schedule       -payment ID -first YYYY-MM-DD [-owner ID]
  mark-paid      -installment ID -date YYYY-MM-DD -method METHOD
  cancel         -installment ID
`

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
		Component: log.ComponentCLI,
	})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContextErr(ctx, "Invalid backend configuration", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContextErr(ctx, "Failed to create backend", err)
		os.Exit(1)
	}

	app := newApp(result, logger)
	runErr := app.run(ctx, os.Args[1:], os.Stdout)
	if err := result.Cleanup(); err != nil {
		logger.WarnContext(ctx, "Cleanup failed", log.FieldError, err)
	}
	if runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

type app struct {
	result    *backend.BackendResult
	payments  *services.PaymentService
	summaries *services.Aggregator
	itemViews *services.ItemSummarizer
	selector  *services.QuoteSelector
}

func newApp(r *backend.BackendResult, logger *log.Logger) *app {
	s := r.Store
	return &app{
		result:    r,
		payments:  services.NewPaymentService(s, r.Publisher(), logger),
		summaries: services.NewAggregator(s, s, s, logger),
		itemViews: services.NewItemSummarizer(s, s, s, logger),
		selector:  services.NewQuoteSelector(s, r.Publisher(), logger),
	}
}

func (a *app) run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return flag.ErrHelp
	}
	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(out)

	var v any
	var err error
	switch cmd {
	case "summary":
		project := fs.String("project", "", "project id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		v, err = a.summaries.GetFinancialSummary(ctx, *project)
	case "items":
		project := fs.String("project", "", "project id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		v, err = a.itemViews.GetItemsWithPaymentSummary(ctx, *project)
	case "add-item":
		project := fs.String("project", "", "project id")
		name := fs.String("name", "", "item name")
		estimate := fs.String("estimate", "0", "estimated total")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var total core.Money
		if total, err = core.ParseMoney(*estimate); err != nil {
			return err
		}
		v, err = a.result.Store.InsertItem(ctx, core.Item{ProjectID: *project, Name: *name, EstimatedTotal: total})
	case "add-quote":
		project := fs.String("project", "", "project id")
		supplier := fs.String("supplier", "", "supplier id")
		amount := fs.String("amount", "", "quoted amount")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var total core.Money
		if total, err = core.ParseMoney(*amount); err != nil {
			return err
		}
		v, err = a.result.Store.InsertQuote(ctx, core.Quote{ProjectID: *project, SupplierID: *supplier, Amount: total})
	case "choose-quote":
		project := fs.String("project", "", "project id")
		quote := fs.String("quote", "", "quote id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		v, err = a.selector.ChooseQuote(ctx, *quote, *project)
	case "pay":
		v, err = a.createPayment(ctx, fs, args)
	case "schedule":
		payment := fs.String("payment", "", "payment id")
		first := fs.String("first", "", "first due date")
		owner := fs.String("owner", "", "owner id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var firstDue core.Date
		if firstDue, err = core.ParseDate(*first); err != nil {
			return err
		}
		v, err = a.payments.ScheduleInstallments(ctx, *payment, firstDue, *owner)
	case "mark-paid":
		id := fs.String("installment", "", "installment id")
		date := fs.String("date", "", "paid date")
		method := fs.String("method", "", "payment method")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var paid core.Date
		if paid, err = core.ParseDate(*date); err != nil {
			return err
		}
		v, err = a.payments.MarkInstallmentPaid(ctx, *id, paid, *method)
	case "cancel":
		id := fs.String("installment", "", "installment id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		v, err = a.payments.CancelInstallment(ctx, *id)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type paymentOutput struct {
	Payment      core.Payment       `json:"payment"`
	Installments []core.Installment `json:"installments"`
}

func (a *app) createPayment(ctx context.Context, fs *flag.FlagSet, args []string) (any, error) {
	project := fs.String("project", "", "project id")
	item := fs.String("item", "", "item id")
	description := fs.String("description", "", "description")
	amount := fs.String("amount", "", "total amount")
	installments := fs.Int("installments", 1, "number of installments")
	rate := fs.Float64("rate", 0, "interest rate percent; 0 means no interest")
	first := fs.String("first", "", "first due date")
	owner := fs.String("owner", "", "owner id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	total, err := core.ParseMoney(*amount)
	if err != nil {
		return nil, err
	}
	firstDue, err := core.ParseDate(*first)
	if err != nil {
		return nil, err
	}
	p, insts, err := a.payments.CreatePayment(ctx, services.CreatePaymentRequest{
		Payment: core.Payment{
			ProjectID:       *project,
			ItemID:          *item,
			Description:     *description,
			TotalAmount:     total,
			HasInterest:     *rate > 0,
			InterestRate:    *rate,
			NumInstallments: *installments,
		},
		FirstDueDate: firstDue,
		OwnerID:      *owner,
	})
	if err != nil {
		return nil, err
	}
	return paymentOutput{Payment: p, Installments: insts}, nil
}
