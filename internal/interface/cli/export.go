package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/export"
)

var (
	exportOutput   string
	exportThinking bool
	exportNoTools  bool
	exportTemplate string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session to markdown",
	Long: `Export a reconstructed session to a markdown file.

By default exports to current directory as session-<id>.md.
Use --output to specify a custom path, --template to render through a
custom mustache template file.

Examples:
  ccreplay export 0ccfddc4-00e7-443a-bb82-58ede5936619
  ccreplay export 0ccfddc4 --output ~/exported-session.md
  ccreplay export 0ccfddc4 -o session.md --thinking`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: session-<id>.md in current directory)")
	exportCmd.Flags().BoolVar(&exportThinking, "thinking", false, "Include thinking blocks")
	exportCmd.Flags().BoolVar(&exportNoTools, "no-tools", false, "Omit tool call lists")
	exportCmd.Flags().StringVar(&exportTemplate, "template", "", "Custom mustache template file")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}

	s, err := eng.Session(args[0])
	if err != nil {
		return err
	}

	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	// Determine output path
	outputPath := exportOutput
	if outputPath == "" {
		// Generate default filename in current directory
		shortID := s.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		outputPath = filepath.Join(cwd, fmt.Sprintf("session-%s.md", shortID))
	} else if !filepath.IsAbs(outputPath) {
		// Make relative paths absolute to current directory
		outputPath = filepath.Join(cwd, outputPath)
	}

	opts := export.Options{
		Template:        cfg.ExportTemplate,
		IncludeThinking: exportThinking,
		IncludeTools:    !exportNoTools,
	}
	if exportTemplate != "" {
		raw, err := os.ReadFile(exportTemplate)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		opts.Template = string(raw)
	}

	markdown, err := export.Markdown(s, opts)
	if err != nil {
		return fmt.Errorf("failed to render session: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Printf("Exported session to: %s\n", outputPath)
	return nil
}
