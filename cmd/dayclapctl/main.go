// Command dayclapctl runs maintenance tasks against the DayClap database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/LovationAdmin/dayclap-api/config"
	"github.com/LovationAdmin/dayclap-api/migration"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

var rootCmd = &cobra.Command{
	Use:   "dayclapctl",
	Short: "DayClap maintenance commands",
	Long: `dayclapctl applies schema migrations, converts legacy events and
generates VAPID keys. Database settings come from the same environment
(and .env file) as the API server.`,
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB, _ *config.Config) error {
			if err := config.RunMigrations(ctx, db); err != nil {
				return err
			}
			fmt.Println("Schema is up to date.")
			return nil
		})
	},
}

var migrateEventsCmd = &cobra.Command{
	Use:   "migrate-events",
	Short: "Convert legacy date/time events to UTC instants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB, _ *config.Config) error {
			result, err := migration.MigrateEventDateTimes(ctx, db)
			if err != nil {
				return err
			}
			fmt.Printf("Migrated: %d  Skipped: %d  Errors: %d\n", result.Migrated, result.Skipped, result.Errors)
			if verbose {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result.Details)
			}
			return nil
		})
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send due one-week event reminders now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB, cfg *config.Config) error {
			email := services.NewEmailService(db, utils.MailConfig{
				APIKey:   cfg.ResendAPIKey,
				Endpoint: cfg.EmailAPIEndpoint,
				From:     cfg.FromEmail,
			}, cfg.FrontendURL)
			sent, err := services.NewReminderScheduler(db, email).RunOnce(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("Sent %d reminder(s).\n", sent)
			return nil
		})
	},
}

var vapidKeysCmd = &cobra.Command{
	Use:   "vapid-keys",
	Short: "Generate a VAPID key pair for web push",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		publicKey, privateKey, err := services.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicKey)
		fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateKey)
		return nil
	},
}

func withDB(ctx context.Context, fn func(ctx context.Context, db *sql.DB, cfg *config.Config) error) error {
	cfg := config.Load()
	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	return fn(ctx, db, cfg)
}

func init() {
	migrateEventsCmd.Flags().BoolP("verbose", "v", false, "print one line per converted event")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateEventsCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(vapidKeysCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
