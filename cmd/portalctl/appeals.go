package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/repository"
	"github.com/noah-isme/gov-portal-api/internal/service"
	"github.com/noah-isme/gov-portal-api/pkg/export"
)

func appealsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appeals",
		Short: "Inspect and export the appeal register",
	}
	cmd.AddCommand(appealsStatsCmd(), appealsExportCmd())
	return cmd
}

func bindFilterFlags(cmd *cobra.Command, query *dto.AppealQuery) {
	cmd.Flags().StringVar(&query.Search, "search", "", "free-text search")
	cmd.Flags().StringVar(&query.Status, "status", "all", "status filter")
	cmd.Flags().StringVar(&query.Category, "category", "all", "category filter")
	cmd.Flags().StringVar(&query.Date, "date", "all", "date bucket: all, today, week, month, quarter")
}

func appealsStatsCmd() *cobra.Command {
	var query dto.AppealQuery
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print appeal counts for the filtered register",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := service.ParseAppealFilterSpec(query)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			board := service.NewAppealBoard(repository.NewAppealRepository(db))
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			board.SetFilter(spec)
			visible := board.Visible()
			stats := board.Stats()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "TOTAL\tNEW\tIN PROGRESS\tCOMPLETED\tMATCHING\n")
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", stats.Total, stats.New, stats.InProgress, stats.Completed, len(visible))
			return w.Flush()
		},
	}
	bindFilterFlags(cmd, &query)
	return cmd
}

func appealsExportCmd() *cobra.Command {
	var (
		query  dto.AppealQuery
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the filtered register to a CSV or PDF file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := service.ParseAppealFilterSpec(query)
			if err != nil {
				return err
			}
			exportFormat, err := service.ParseExportFormat(format)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			appeals := service.NewAppealService(service.AppealServiceParams{
				Store:  repository.NewAppealRepository(db),
				Logger: rt.log,
			})
			exporter := service.NewExportService(appeals, rt.log, export.NewCSVExporter(export.WithBOM()), export.NewPDFExporter())
			result, err := exporter.Appeals(cmd.Context(), spec, exportFormat)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			target := filepath.Join(outDir, result.Filename)
			if err := os.WriteFile(target, result.Payload, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			rt.log.Info("appeals exported", zap.String("file", target), zap.Int("rows", result.Rows))
			return nil
		},
	}
	bindFilterFlags(cmd, &query)
	cmd.Flags().StringVar(&format, "format", "csv", "csv or pdf")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}
