package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/sigrelay/internal/app"
	"github.com/newthinker/sigrelay/internal/fundamental"
)

var probeJSON bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check every configured market indicator and news feed",
	RunE:  runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Fundamentals.Enabled = true

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	results := a.Overlay().Probe(cmd.Context(), cfg.Fundamentals.FetchTimeout)

	out := cmd.OutOrStdout()
	if probeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else if err := writeProbeTable(out, results); err != nil {
		return err
	}

	return probeErr(results)
}

// writeProbeTable prints one row per probed source.
func writeProbeTable(w io.Writer, results []fundamental.ProbeResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tTARGET\tSTATUS\tDETAIL\tTOOK")
	for _, r := range results {
		status := "ok"
		detail := ""
		switch {
		case !r.OK:
			status = "FAIL"
			detail = r.Error
		case r.Kind == "market":
			detail = fmt.Sprintf("%.4f (%+.2f%%)", r.Value, r.ChangePct)
		default:
			detail = fmt.Sprintf("%d items", r.Items)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Kind, r.Name, r.Target, status, detail, r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

// probeErr fails only when no source answered.
func probeErr(results []fundamental.ProbeResult) error {
	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	if len(results) > 0 && failed == len(results) {
		return fmt.Errorf("all %d sources failed", failed)
	}
	return nil
}
