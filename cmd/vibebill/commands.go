package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/vibebill/internal/migrate"
	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/service"
	"github.com/mmynk/vibebill/internal/storage/sqlite"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func() error {
				out := cmd.OutOrStdout()
				schema := a.store.Schema()
				if len(schema.Applied) == 0 {
					fmt.Fprintf(out, "Schema is up to date at version %d\n", schema.Version)
				} else {
					fmt.Fprintf(out, "Applied %d migration(s), schema is at version %d (run %s)\n",
						len(schema.Applied), schema.Version, schema.RunID)
				}

				records, err := migrate.Records(cmd.Context(), a.store.DB())
				if err != nil {
					return err
				}
				return printLedger(out, records, nil)
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schema version and pending migrations without applying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				records []migrate.Record
				current int
			)
			db, err := sqlite.OpenReadOnly(a.cfg.Database.Path)
			switch {
			case errors.Is(err, os.ErrNotExist):
				// Nothing applied yet; leave the file to migrate.
			case err != nil:
				return err
			default:
				defer db.Close()
				if records, err = migrate.Records(cmd.Context(), db); err != nil {
					return err
				}
				if current, err = migrate.Current(cmd.Context(), db); err != nil {
					return err
				}
			}
			registry := sqlite.Registry()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", a.cfg.Database.Path)
			fmt.Fprintf(out, "Schema version: %d of %d\n", current, len(registry))

			var pending []migrate.Migration
			for _, m := range registry {
				if m.Version > current {
					pending = append(pending, m)
				}
			}
			return printLedger(out, records, pending)
		},
	}
}

func printLedger(out io.Writer, records []migrate.Record, pending []migrate.Migration) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tDESCRIPTION\tAPPLIED AT\tRUN")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Version, r.Description, r.AppliedAt, r.RunID)
	}
	for _, m := range pending {
		fmt.Fprintf(tw, "%d\t%s\tpending\t\n", m.Version, m.Description)
	}
	return tw.Flush()
}

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Re-evaluate open invoices and mark those past their due date as overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func() error {
				changed, err := a.services.Invoices.SweepOverdue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d invoice(s) changed status\n", changed)
				return nil
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var months, top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard figures, monthly revenue and top customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func() error {
				ctx := cmd.Context()
				stats, err := a.services.Reports.Dashboard(ctx)
				if err != nil {
					return err
				}
				revenue, err := a.services.Reports.MonthlyRevenue(ctx, months)
				if err != nil {
					return err
				}
				customers, err := a.services.Reports.TopCustomers(ctx, top)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Invoices\t%d\n", stats.TotalInvoices)
				fmt.Fprintf(tw, "Open\t%d\n", stats.OpenInvoices)
				fmt.Fprintf(tw, "Paid\t%d\n", stats.PaidInvoices)
				fmt.Fprintf(tw, "Overdue\t%d\n", stats.OverdueInvoices)
				fmt.Fprintf(tw, "Revenue\t%s\n", stats.TotalRevenue.StringFixed(2))
				fmt.Fprintf(tw, "Revenue this month\t%s\n", stats.MonthlyRevenue.StringFixed(2))
				fmt.Fprintf(tw, "Open amount\t%s\n", stats.OpenAmount.StringFixed(2))

				if len(revenue) > 0 {
					fmt.Fprintln(tw, "\nMONTH\tREVENUE")
					for _, m := range revenue {
						fmt.Fprintf(tw, "%s\t%s\n", m.Month, m.Revenue.StringFixed(2))
					}
				}
				if len(customers) > 0 {
					fmt.Fprintln(tw, "\nCUSTOMER\tINVOICES\tTOTAL")
					for _, c := range customers {
						fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Name, c.Count, c.Total.StringFixed(2))
					}
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&months, "months", 12, "number of months of revenue to show")
	cmd.Flags().IntVar(&top, "top", 5, "number of top customers to show")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		outPath  string
		locale   string
		status   string
		year     int
		sellerID int64
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export invoices as semicolon separated CSV",
		Long: `Export invoice headers as semicolon separated CSV with a UTF-8 byte
order mark, ready for spreadsheet programs. Use --out - to write to stdout.`,
		Example: `  # Export all invoices of 2025 to Rechnungen_<today>.csv
  vibebill export --year 2025

  # English headers to stdout
  vibebill export --locale en --out -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.InvoiceFilter{
				SellerID: sellerID,
				Status:   models.InvoiceStatus(status),
				Year:     year,
			}
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			if outPath == "" {
				outPath = service.ExportFileName(time.Now())
			}

			return a.withStore(func() error {
				var w io.Writer = cmd.OutOrStdout()
				if outPath != "-" {
					f, err := os.Create(outPath)
					if err != nil {
						return fmt.Errorf("failed to create export file: %w", err)
					}
					defer f.Close()
					w = f
				}

				n, err := a.services.Reports.ExportInvoicesCSV(cmd.Context(), w, filter, locale)
				if err != nil {
					return err
				}
				if outPath != "-" {
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %d invoice(s) to %s\n", n, outPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, - for stdout (default: Rechnungen_<date>.csv)")
	cmd.Flags().StringVar(&locale, "locale", "", "de or en (default: locale setting)")
	cmd.Flags().StringVar(&status, "status", "", "only invoices with this status")
	cmd.Flags().IntVar(&year, "year", 0, "only invoices dated in this year")
	cmd.Flags().Int64Var(&sellerID, "seller", 0, "only invoices of this seller")
	return cmd
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write application settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func() error {
				settings, err := a.services.Settings.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, s := range settings {
					fmt.Fprintf(tw, "%s\t%s\n", s.Key, s.Value)
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print a setting, or its default when unset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func() error {
					value, err := a.services.Settings.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), value)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Store a setting",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func() error {
					return a.services.Settings.Set(cmd.Context(), args[0], strings.Join(args[1:], " "))
				})
			},
		},
	)
	return cmd
}
