package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest policy files into the index",
	Long: `Reads every markdown file in the directory, validates its frontmatter,
chunks the body, embeds the chunks and writes them to the vector index.
PDF files are ingested too when pdftotext is installed; their metadata
comes from a YAML sidecar next to the file (policy.pdf + policy.yaml).
Re-ingesting a policy replaces its previous version atomically.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var ingestRemoveCmd = &cobra.Command{
	Use:   "remove [document-id]",
	Short: "Remove an ingested policy document",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestRemove,
}

func init() {
	ingestCmd.AddCommand(ingestRemoveCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	report, err := a.ingest.IngestDir(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Ingested %d document(s), %d chunk(s).\n", report.Ingested, report.Chunks)

	if len(report.Rejected) > 0 {
		paths := make([]string, 0, len(report.Rejected))
		for path := range report.Rejected {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		cmd.Printf("Rejected %d file(s):\n", len(paths))
		for _, path := range paths {
			cmd.Printf("  %s: %v\n", path, report.Rejected[path])
		}
	}

	return nil
}

func runIngestRemove(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	if err := a.ingest.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Printf("Removed %s.\n", args[0])
	return nil
}
