package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scanocr/internal/toolchain"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show which external tools were found",
	Long: `Tools resolves the rasterizer, the fallback rasterizer and the OCR engine
the same way "scanocr ocr" does and prints where each was found. A missing
rasterizer pair makes every document fail; a missing OCR engine degrades
runs to rasterization only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tools := toolchain.Resolve()

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tools)
		}

		for _, t := range tools.All() {
			fmt.Println(t)
		}
		if !tools.Rasterizer.Available() && !tools.RasterizerFallback.Available() {
			fmt.Println("\nNo rasterizer found: install ImageMagick or poppler-utils.")
		}
		if !tools.OCR.Available() {
			fmt.Println("\nNo OCR engine found: install tesseract.")
		}
		return nil
	},
}

func init() {
	toolsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(toolsCmd)
}
