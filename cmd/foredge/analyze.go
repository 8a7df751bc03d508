package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bindery/foredge/internal/api"
	"github.com/bindery/foredge/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <pdf>",
	Short: "Report page count and trim dimensions of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}
		a, err := pipeline.Analyze(data)
		if err != nil {
			return err
		}
		return api.Output(a)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
