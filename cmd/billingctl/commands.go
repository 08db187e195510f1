package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/msgpilot/backend/internal/config"
	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/msgpilot/backend/internal/plans"
	"github.com/msgpilot/backend/internal/repository"
	"github.com/msgpilot/backend/internal/service"
	pkgcache "github.com/msgpilot/backend/pkg/cache"
	"github.com/spf13/cobra"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var plansJSON bool

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List plans and message packs",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if plansJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{"plans": plans.All(), "packs": plans.AllPacks()})
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PLAN\tNAME\tMONTHLY\tYEARLY\tMESSAGES\tPURCHASABLE")
		for _, p := range plans.All() {
			messages := fmt.Sprint(p.MessagesLimit)
			if p.Unlimited() {
				messages = "unlimited"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%t\n", p.ID, p.Name, p.MonthlyPrice, p.YearlyPrice, messages, plans.IsPurchasable(string(p.ID)))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PACK\tNAME\tPRICE\tMESSAGES\tPER MESSAGE")
		for _, p := range plans.AllPacks() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\n", p.ID, p.Name, p.Price, p.Messages, p.PerMsg)
		}
		return w.Flush()
	},
}

var checkoutReq domain.CheckoutRequest
var checkoutUser string

var checkoutURLCmd = &cobra.Command{
	Use:   "checkout-url",
	Short: "Build a hosted checkout URL with the configured product mapping",
	Example: `  billingctl checkout-url --user u_123 --plan pro --period yearly
  billingctl checkout-url --user u_123 --pack pack_500 --lang kk`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		checkout := service.NewCheckoutService(paypro.NewGateway(cfg.PayPro.Gateway()))
		url, err := checkout.CreateCheckoutURL(checkoutUser, "", checkoutReq)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

var ipnFile, ipnRemoteIP string

var verifyIPNCmd = &cobra.Command{
	Use:   "verify-ipn",
	Short: "Parse a raw IPN body and check its hash, signature and source IP",
	Long:  `Reads a form-encoded IPN body from --file (or stdin with "-") and reports what the webhook would conclude, without touching the database`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		var body []byte
		if ipnFile == "-" {
			body, err = io.ReadAll(cmd.InOrStdin())
		} else {
			body, err = os.ReadFile(ipnFile)
		}
		if err != nil {
			return fmt.Errorf("read ipn body: %w", err)
		}

		ev, err := paypro.ParseIPN(body)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "type\t%d (%s)\n", ev.TypeID, ev.TypeID)
		fmt.Fprintf(w, "order\t%s\n", ev.OrderID)
		fmt.Fprintf(w, "subscription\t%s\n", ev.SubscriptionID)
		fmt.Fprintf(w, "user\t%s\n", ev.Custom.UserID)
		fmt.Fprintf(w, "plan\t%s\n", ev.Custom.PlanID)
		fmt.Fprintf(w, "pack\t%s\n", ev.Custom.PackID)
		fmt.Fprintf(w, "period\t%s\n", ev.Custom.BillingPeriod)
		fmt.Fprintf(w, "dedupe key\t%s\n", service.DedupeKey(ev))
		if err := w.Flush(); err != nil {
			return err
		}

		if err := paypro.NewGateway(cfg.PayPro.Gateway()).Verify(ev, ipnRemoteIP); err != nil {
			fmt.Fprintf(out, "verdict: REJECTED (%v)\n", err)
			return err
		}
		fmt.Fprintln(out, "verdict: AUTHENTIC")
		return nil
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire every subscription past its expiry date",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		subs := service.NewSubscriptionService(
			repository.NewBillingStore(db),
			paypro.NewGateway(cfg.PayPro.Gateway()),
			pkgcache.NewService(nil),
		)
		n, err := subs.ExpireOverdue(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "expired %d subscription(s)\n", n)
		return nil
	},
}

func init() {
	plansCmd.Flags().BoolVar(&plansJSON, "json", false, "print JSON")

	f := checkoutURLCmd.Flags()
	f.StringVar(&checkoutUser, "user", "", "dashboard user id (required)")
	f.StringVar(&checkoutReq.PlanID, "plan", "", "plan id")
	f.StringVar(&checkoutReq.PackID, "pack", "", "message pack id")
	f.StringVar(&checkoutReq.BillingPeriod, "period", "", "monthly or yearly")
	f.StringVar(&checkoutReq.Language, "lang", "en", "dashboard language")
	f.StringVar(&checkoutReq.Email, "email", "", "prefilled billing email")
	f.StringVar(&checkoutReq.Currency, "currency", "", "ISO currency code")
	_ = checkoutURLCmd.MarkFlagRequired("user")
	checkoutURLCmd.MarkFlagsMutuallyExclusive("plan", "pack")

	verifyIPNCmd.Flags().StringVarP(&ipnFile, "file", "f", "-", "IPN body file, - for stdin")
	verifyIPNCmd.Flags().StringVar(&ipnRemoteIP, "ip", "", "source address the delivery came from")
}
