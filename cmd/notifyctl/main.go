package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/certifyapp/certnotify/internal/config"
	"github.com/certifyapp/certnotify/internal/database"
	"github.com/certifyapp/certnotify/internal/email"
	"github.com/certifyapp/certnotify/internal/logger"
	"github.com/certifyapp/certnotify/internal/model"
	"github.com/certifyapp/certnotify/internal/repository"
	"github.com/certifyapp/certnotify/internal/service"
)

var (
	configFile string
	cfg        *config.Config
	log        *logger.Logger

	certName   string
	certStatus string
	shareToken string
	previewTo  string
	sendTo     string
	showHTML   bool
	limit      int
	asJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "notifyctl",
	Short: "Operator tool for certificate status notifications",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configFile != "" {
			cfg, err = config.LoadFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log = logger.New(cfg.Log.Level, "text")
		return nil
	},
	SilenceUsage: true,
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the status email for a certificate without sending it",
	RunE:  runPreview,
}

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Send a status email through the configured provider",
	RunE:  runSendTest,
}

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries [certificate-id]",
	Short: "List recorded deliveries for a certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeliveries,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml, /etc/certnotify/config.yaml)")

	for _, c := range []*cobra.Command{previewCmd, sendTestCmd} {
		c.Flags().StringVar(&certName, "name", "Sample Certificate", "certificate name")
		c.Flags().StringVar(&certStatus, "status", string(model.CertificateStatusApproved), "new status: approved or rejected")
		c.Flags().StringVar(&shareToken, "token", "sample-token", "share token used in the view link")
	}
	previewCmd.Flags().StringVar(&previewTo, "to", "recipient@example.com", "recipient shown in the preview")
	previewCmd.Flags().BoolVar(&showHTML, "html", false, "print the HTML body instead of the text body")

	sendTestCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	_ = sendTestCmd.MarkFlagRequired("to")

	deliveriesCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of rows")
	deliveriesCmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(sendTestCmd)
	rootCmd.AddCommand(deliveriesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func sampleRecord() (model.CertificateRecord, error) {
	status := model.CertificateStatus(certStatus)
	if !status.IsTerminal() {
		return model.CertificateRecord{}, fmt.Errorf("status %q never produces an email", certStatus)
	}
	return model.CertificateRecord{
		Name:       certName,
		Status:     status,
		ShareToken: shareToken,
	}, nil
}

func runPreview(cmd *cobra.Command, _ []string) error {
	record, err := sampleRecord()
	if err != nil {
		return err
	}

	svc := service.NewNotificationService(nil, nil, nil, nil, cfg, log)
	msg := svc.BuildMessage(previewTo, record)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "To:      %s\n", msg.To)
	fmt.Fprintf(out, "From:    %s <%s>\n", cfg.Email.SenderName, cfg.Email.SenderAddress)
	fmt.Fprintf(out, "Subject: %s\n\n", msg.Subject)
	if showHTML {
		fmt.Fprintln(out, msg.HTMLBody)
	} else {
		fmt.Fprintln(out, msg.TextBody)
	}
	return nil
}

func runSendTest(cmd *cobra.Command, _ []string) error {
	record, err := sampleRecord()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := cfg.ValidateProvider(); err != nil {
		return err
	}
	sender, err := email.NewSender(ctx, cfg.Email, log)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}

	svc := service.NewNotificationService(sender, nil, nil, nil, cfg, log)
	if err := sender.Send(ctx, svc.BuildMessage(sendTo, record)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	log.Info().
		Str("to", sendTo).
		Str("provider", cfg.Email.Provider).
		Msg("test email sent")
	return nil
}

func runDeliveries(cmd *cobra.Command, args []string) error {
	if !cfg.Database.Enabled {
		return errors.New("delivery log database is disabled; set CERTNOTIFY_DATABASE_ENABLED=true")
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	rows, err := repository.NewDeliveryRepository(db).ListByCertificate(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintf(out, "No deliveries recorded for %s\n", args[0])
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSTATUS\tOUTCOME\tRECIPIENT\tPROVIDER\tEVENT\tERROR")
	for _, d := range rows {
		errMsg := ""
		if d.Error != nil {
			errMsg = *d.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.CreatedAt.Format(time.RFC3339), d.Status, d.Outcome, d.Recipient, d.Provider, d.EventID, errMsg)
	}
	return tw.Flush()
}
