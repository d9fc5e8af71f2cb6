package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rudyardtech/billing/internal/auth"
	"github.com/rudyardtech/billing/internal/client"
	clientStore "github.com/rudyardtech/billing/internal/client/store"
	"github.com/rudyardtech/billing/internal/config"
	"github.com/rudyardtech/billing/internal/contact"
	contactStore "github.com/rudyardtech/billing/internal/contact/store"
	"github.com/rudyardtech/billing/internal/database"
	billingHttp "github.com/rudyardtech/billing/internal/http"
	clientHandler "github.com/rudyardtech/billing/internal/http/client"
	contactHandler "github.com/rudyardtech/billing/internal/http/contact"
	invoiceHandler "github.com/rudyardtech/billing/internal/http/invoice"
	userHandler "github.com/rudyardtech/billing/internal/http/user"
	"github.com/rudyardtech/billing/internal/invoice"
	invoiceStore "github.com/rudyardtech/billing/internal/invoice/store"
	"github.com/rudyardtech/billing/internal/mailer"
	"github.com/rudyardtech/billing/internal/payment"
	"github.com/rudyardtech/billing/internal/tablestore"
	"github.com/rudyardtech/billing/internal/telemetry"
	"github.com/rudyardtech/billing/internal/user"
	userStore "github.com/rudyardtech/billing/internal/user/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		slog.Error("failed to configure token verification", "error", err)
		os.Exit(1)
	}

	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		SSL:      cfg.Email.SSL,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})
	if err != nil {
		slog.Error("failed to configure mail transport", "error", err)
		os.Exit(1)
	}

	var (
		log     = slog.Default()
		events  = telemetry.NewLogger(log)
		tables  = tablestore.New(db)
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey)
		issuer  = auth.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	)

	var (
		invoiceService = invoice.NewService(invoiceStore.New(tables), gateway, sender, events, log, invoice.Options{
			Currency:       cfg.Payments.Currency,
			Cumulative:     cfg.Payments.Cumulative,
			OperatorEmail:  cfg.Email.Operator,
			InvoiceBaseURL: cfg.Payments.InvoiceBaseURL,
		})
		clientService  = client.NewService(clientStore.New(tables), events)
		userService    = user.NewService(userStore.New(tables), issuer, events)
		contactService = contact.NewService(contactStore.New(tables), sender, events, log, cfg.Email.Operator)
	)

	var (
		invoiceH = invoiceHandler.NewHandler(invoiceService)
		clientH  = clientHandler.NewHandler(clientService, invoiceService)
		userH    = userHandler.NewHandler(userService)
		contactH = contactHandler.NewHandler(contactService)
	)

	router := billingHttp.New(verifier, billingHttp.RateLimit{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
	}, invoiceH, clientH, userH, contactH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	server := &http.Server{
		Addr:         port,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func buildVerifier(cfg *config.Config) (auth.Verifier, error) {
	chain := auth.Chain{auth.NewLocalVerifier(cfg.Auth.TokenSecret)}

	if cfg.Auth.ExternalPublicKey != "" {
		external, err := auth.NewExternalVerifier(
			cfg.Auth.ExternalPublicKey,
			cfg.Auth.ExternalIssuer,
			cfg.Auth.ExternalAudience,
		)
		if err != nil {
			return nil, err
		}

		chain = append(chain, external)
	}

	return chain, nil
}
