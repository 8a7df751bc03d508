package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bindery/foredge/internal/api"
	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/pipeline"
	"github.com/bindery/foredge/internal/render"
)

var (
	processPDF    string
	processSide   string
	processTop    string
	processBottom string
	processDesign string
	processBleed  string
	processEdges  string
	processScale  string
	processPaper  string
	processOut    string
)

// processSummary is the structured result printed after a run.
type processSummary struct {
	RunID    string                  `json:"run_id" yaml:"run_id"`
	Output   string                  `json:"output" yaml:"output"`
	Pages    int                     `json:"pages" yaml:"pages"`
	Reused   bool                    `json:"reused_slices" yaml:"reused_slices"`
	Design   pipeline.SliceSetHandle `json:"design" yaml:"design"`
	Warnings []render.Warning        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Decorate a document's page edges",
	Long: `Process a PDF, stamping edge artwork onto every page so the bound
stack shows the image across its closed edges.

Each edge takes either an image file or a flat color:

  foredge process --pdf book.pdf --side art.png --out decorated.pdf
  foredge process --pdf book.pdf --side '#1a5276' --out decorated.pdf
  foredge process --pdf book.pdf --side art.png --top sky.png --bottom sea.png \
      --edges all-edges --out decorated.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		pipe, cm, err := setup(logger)
		if err != nil {
			return err
		}
		defaults := cm.Get().Defaults

		source, err := os.ReadFile(processPDF)
		if err != nil {
			return fmt.Errorf("failed to read source document: %w", err)
		}
		images := edge.ImageSet{}
		if images.Side, err = edgeEntry(processSide); err != nil {
			return err
		}
		if images.Top, err = edgeEntry(processTop); err != nil {
			return err
		}
		if images.Bottom, err = edgeEntry(processBottom); err != nil {
			return err
		}

		req := pipeline.Request{
			Source:    source,
			DesignID:  processDesign,
			Images:    images,
			Mode:      edge.Mode(pick(processEdges, defaults.Edges)),
			Bleed:     geom.BleedMode(pick(processBleed, defaults.Bleed)),
			ScaleMode: edge.ScaleMode(pick(processScale, defaults.Scale)),
			PaperType: pick(processPaper, defaults.PaperType),
			OnProgress: func(pct int) {
				fmt.Fprintf(os.Stderr, "\rprocessing... %3d%%", pct)
			},
		}

		res, err := pipe.Run(cmd.Context(), req)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		if err := os.WriteFile(processOut, res.Final, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return api.Output(processSummary{
			RunID:    res.RunID,
			Output:   processOut,
			Pages:    res.Pages,
			Reused:   res.Reused,
			Design:   res.Slices,
			Warnings: res.Warnings,
		})
	},
}

// edgeEntry resolves an --side/--top/--bottom value: empty means no
// artwork, a leading '#' means a flat color, anything else is an image
// path.
func edgeEntry(value string) (*edge.Entry, error) {
	if value == "" {
		return nil, nil
	}
	if strings.HasPrefix(value, "#") {
		if _, err := edge.ParseColor(value); err != nil {
			return nil, err
		}
		return &edge.Entry{Color: value}, nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("failed to read edge image: %w", err)
	}
	return &edge.Entry{Image: data}, nil
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func init() {
	processCmd.Flags().StringVar(&processPDF, "pdf", "", "Source PDF (required)")
	processCmd.Flags().StringVar(&processSide, "side", "", "Side edge image path or #rrggbb color")
	processCmd.Flags().StringVar(&processTop, "top", "", "Top edge image path or #rrggbb color")
	processCmd.Flags().StringVar(&processBottom, "bottom", "", "Bottom edge image path or #rrggbb color")
	processCmd.Flags().StringVar(&processDesign, "design", "", "Design id for slice reuse across runs")
	processCmd.Flags().StringVar(&processBleed, "bleed", "", "Bleed handling: add or existing")
	processCmd.Flags().StringVar(&processEdges, "edges", "", "Edge mode: side-only or all-edges")
	processCmd.Flags().StringVar(&processScale, "scale", "", "Scale mode: fill, fit, stretch, none, extend-sides")
	processCmd.Flags().StringVar(&processPaper, "paper", "", "Paper type: bw, standard, premium")
	processCmd.Flags().StringVar(&processOut, "out", "", "Output path (required)")
	processCmd.MarkFlagRequired("pdf")
	processCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(processCmd)
}
