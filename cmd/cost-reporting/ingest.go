package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestSource string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "replaces the billing data with a Parquet billing export",
	Long: `Replaces the billing data with the Parquet billing export at --source.
The source may be a local file, a glob of files or an s3:// location.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "the billing export to ingest: a local path, a glob or an s3://bucket/key location")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestSource == "" {
		return fmt.Errorf("--source is required")
	}
	logger := newLogger()
	ctx := setupSignals()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := newReportFetcher(logger).Fetch(ingestSource)
	if err != nil {
		return fmt.Errorf("unable to fetch %s: %v", ingestSource, err)
	}
	if err := store.Ingest(path); err != nil {
		return err
	}
	rows, err := store.RowCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ingested %s: %d usage line items\n", ingestSource, rows)
	return nil
}
