// Command petrolctl is the operator tool for the petrol logbook: it hashes
// passwords for the user allow-list and reads or exports a user's month
// straight from the configured record store.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkordes/petrol-logbook/internal/auth"
	"github.com/pkordes/petrol-logbook/internal/config"
	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/repo"
	"github.com/pkordes/petrol-logbook/internal/service"
	"github.com/pkordes/petrol-logbook/pkg/logging"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. now picks the default month.
func newRootCmd(in io.Reader, out io.Writer, now func() time.Time) *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "petrolctl",
		Short:         "Petrol logbook operator tool",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file to load")

	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(listCmd(now))
	rootCmd.AddCommand(exportCmd(now))
	return rootCmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for a USER<n>_HASH variable",
		Long:  "Print a bcrypt hash for a USER<n>_HASH variable. Without an argument the password is read from the first line of stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// target is the user and month a read command works on.
type target struct {
	user  string
	month string
}

func (t *target) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.user, "user", "", "user email (required)")
	cmd.Flags().StringVar(&t.month, "month", "", "month as 2006-01 (default: current month)")
	_ = cmd.MarkFlagRequired("user")
}

// resolve loads configuration, finds the user and parses the month.
func (t *target) resolve(now func() time.Time) (config.Config, domain.UserProfile, domain.Month, error) {
	cfg, err := config.LoadOffline()
	if err != nil {
		return config.Config{}, domain.UserProfile{}, domain.Month{}, err
	}
	user, ok := auth.NewPasswordAuthenticator(cfg.Users).Lookup(t.user)
	if !ok {
		return config.Config{}, domain.UserProfile{}, domain.Month{}, fmt.Errorf("unknown user %q", t.user)
	}
	month := domain.MonthOf(now())
	if t.month != "" {
		if month, err = domain.ParseMonth(t.month); err != nil {
			return config.Config{}, domain.UserProfile{}, domain.Month{}, err
		}
	}
	return cfg, user, month, nil
}

// openRecords opens the configured store. Logs go to stderr so they never
// mix with command output.
func openRecords(ctx context.Context, cfg config.Config, now func() time.Time) (*service.RecordService, func(), error) {
	store, err := repo.Open(ctx, repo.Options{
		Backend:     repo.Backend(cfg.StoreBackend),
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	return service.NewRecordService(store.Records, service.WithLogger(logger), service.WithClock(now)), store.Close, nil
}

func listCmd(now func() time.Time) *cobra.Command {
	var t target

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a user's entries and totals for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, user, month, err := t.resolve(now)
			if err != nil {
				return err
			}
			records, closeStore, err := openRecords(cmd.Context(), cfg, now)
			if err != nil {
				return err
			}
			defer closeStore()

			rs, err := records.Load(cmd.Context(), domain.RecordKey{User: user.Email, Month: month})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s - %s\n\n", user.Name, month.Title())
			if rs.Len() == 0 {
				fmt.Fprintln(out, "No entries.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(domain.Columns, "\t"))
			for _, e := range rs.Entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", e.Serial, e.DateLabel, e.Details, e.Purpose, e.DistanceKM, e.Amount)
			}
			totals := rs.Aggregate()
			fmt.Fprintf(tw, "\t\t\tTotal\t%s\t%s\n", totals.DistanceKM, totals.Amount)
			return tw.Flush()
		},
	}
	t.bind(cmd)
	return cmd
}

func exportCmd(now func() time.Time) *cobra.Command {
	var (
		t      target
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's month as xlsx, pdf or csv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := domain.ExportFormat(strings.ToLower(format))
			if !f.Valid() {
				return fmt.Errorf("format must be one of xlsx, pdf, csv")
			}
			cfg, user, month, err := t.resolve(now)
			if err != nil {
				return err
			}
			records, closeStore, err := openRecords(cmd.Context(), cfg, now)
			if err != nil {
				return err
			}
			defer closeStore()

			doc, err := service.NewExportService(records, service.WithClock(now)).Export(cmd.Context(), user, month, f)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			path := filepath.Join(outDir, doc.Filename)
			if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(doc.Body))
			return nil
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx, pdf or csv")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write the file into")
	return cmd
}
