package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/service"
)

func newReportCmd() *cobra.Command {
	var (
		year int
		out  string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the yearly guest report as CSV",
		Long:  "Write one CSV row per active guest with that year's visit totals. Writes to stdout unless --out is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			svc := newServices(cfg, b, log, nil)
			if year == 0 {
				year = svc.summary.CurrentYear()
			}
			rows, err := svc.summary.Report(cmd.Context(), year)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := service.WriteReportCSV(w, rows); err != nil {
				return err
			}
			log.Info("report written", "year", year, "rows", len(rows), "out", out)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "report year (default: current year in the club's time zone)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")

	return cmd
}
