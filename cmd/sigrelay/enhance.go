package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/newthinker/sigrelay/internal/app"
	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/fundamental"
)

var (
	enhanceFile         string
	enhanceFundamentals bool
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Enhance one signal read from a file or stdin",
	Long: `Enhance reads a TradingView style JSON alert, applies the pattern table
and prints the enhanced signal. Nothing is recorded and no notifier fires.`,
	RunE: runEnhance,
}

func init() {
	enhanceCmd.Flags().StringVarP(&enhanceFile, "file", "f", "", "signal JSON file (default stdin)")
	enhanceCmd.Flags().BoolVar(&enhanceFundamentals, "fundamentals", false, "include the fundamental overlay")
	rootCmd.AddCommand(enhanceCmd)
}

// EnhanceOutput is what the enhance command prints.
type EnhanceOutput struct {
	Signal       *core.EnhancedSignal `json:"signal"`
	Fundamentals *fundamental.Result  `json:"fundamentals,omitempty"`
}

// signalEnhancer and overlay are the pieces of the app the command needs.
type signalEnhancer interface {
	Enhance(raw core.RawSignal) (*core.EnhancedSignal, error)
}

type overlay interface {
	Enhance(ctx context.Context, raw core.RawSignal) *fundamental.Result
}

func runEnhance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Fundamentals.Enabled = enhanceFundamentals

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	in := cmd.InOrStdin()
	if enhanceFile != "" {
		f, err := os.Open(enhanceFile)
		if err != nil {
			return fmt.Errorf("opening signal file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var ov overlay
	if o := a.Overlay(); o != nil {
		ov = o
	}

	out, err := enhanceSignal(cmd.Context(), in, a.Enhancer(), ov)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// enhanceSignal decodes one raw signal from r and runs it through the
// enhancer and, when ov is non-nil, the overlay.
func enhanceSignal(ctx context.Context, r io.Reader, enhancer signalEnhancer, ov overlay) (*EnhanceOutput, error) {
	raw, err := core.DecodeRawSignal(r)
	if err != nil {
		return nil, err
	}

	sig, err := enhancer.Enhance(raw)
	if err != nil {
		return nil, err
	}

	out := &EnhanceOutput{Signal: sig}
	if ov != nil {
		out.Fundamentals = ov.Enhance(ctx, raw)
	}
	return out, nil
}
