// Command indexctl is a small operator CLI over internal/manager: create
// and inspect indexes, ingest documents from a JSON file, and run a
// single-term search against the reference query path.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"indexkernel/internal/index"
	"indexkernel/internal/indexing"
	"indexkernel/internal/manager"
	"indexkernel/internal/schema"
	"indexkernel/internal/segment"
)

var dataDir string

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "indexctl: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := newRootCmd(logger.Sugar()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(log *zap.SugaredLogger) *cobra.Command {
	root := &cobra.Command{
		Use:   "indexctl",
		Short: "indexctl manages and queries indexkernel indexes",
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "root directory holding one subdirectory per index")

	root.AddCommand(
		newCreateCmd(log),
		newListCmd(log),
		newDeleteCmd(log),
		newIngestCmd(log),
		newSearchCmd(log),
		newStatsCmd(log),
	)
	return root
}

func openManager(log *zap.SugaredLogger) (*manager.Manager, error) {
	return manager.New(dataDir, manager.Options{
		Logger:       log,
		IndexOptions: index.Options{Logger: log},
	})
}

func newCreateCmd(log *zap.SugaredLogger) *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "create a new index from a JSON schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("read schema file %s: %w", schemaPath, err)
			}
			var s schema.Schema
			if err := json.Unmarshal(data, &s); err != nil {
				return fmt.Errorf("parse schema file %s: %w", schemaPath, err)
			}
			if err := s.Validate(); err != nil {
				return fmt.Errorf("invalid schema: %w", err)
			}

			mgr, err := openManager(log)
			if err != nil {
				return err
			}
			if _, err := mgr.CreateIndex(args[0], s); err != nil {
				return err
			}
			fmt.Printf("created index %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to a JSON schema file (required)")
	cmd.MarkFlagRequired("schema")
	return cmd
}

func newListCmd(log *zap.SugaredLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list every index under --data-dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager(log)
			if err != nil {
				return err
			}
			for _, name := range mgr.ListIndexes() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newDeleteCmd(log *zap.SugaredLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "delete an index and its on-disk data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager(log)
			if err != nil {
				return err
			}
			if err := mgr.DeleteIndex(args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted index %q\n", args[0])
			return nil
		},
	}
}

func newStatsCmd(log *zap.SugaredLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <name>",
		Short: "print docstamp and segment count for an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager(log)
			if err != nil {
				return err
			}
			idx, err := mgr.OpenIndex(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("docstamp: %d\nsegments: %d\n", idx.Docstamp(), len(idx.Segments()))
			return nil
		},
	}
}

// newIngestCmd reads a JSON array of documents (each {"fields": {...}}),
// adds them through a fresh writer, commits one segment, and publishes it —
// the CLI equivalent of the end-to-end path internal/index's tests exercise.
func newIngestCmd(log *zap.SugaredLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <name> <documents.json>",
		Short: "ingest a JSON array of documents and publish a new segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, docsPath := args[0], args[1]

			data, err := os.ReadFile(docsPath)
			if err != nil {
				return fmt.Errorf("read documents file %s: %w", docsPath, err)
			}
			var docs []indexing.Document
			if err := json.Unmarshal(data, &docs); err != nil {
				return fmt.Errorf("parse documents file %s: %w", docsPath, err)
			}

			mgr, err := openManager(log)
			if err != nil {
				return err
			}
			idx, err := mgr.OpenIndex(name)
			if err != nil {
				return err
			}

			w, err := idx.Writer(0)
			if err != nil {
				return fmt.Errorf("acquire writer: %w", err)
			}
			defer w.Release()

			if err := w.AddDocuments(docs); err != nil {
				return fmt.Errorf("add documents: %w", err)
			}
			segID, err := w.Commit()
			if err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			newDocstamp := idx.Docstamp() + uint64(len(docs))
			if err := idx.PublishSegments([]segment.ID{segID}, newDocstamp); err != nil {
				return err
			}
			fmt.Printf("ingested %d documents into segment %s\n", len(docs), segID)
			return nil
		},
	}
}

func newSearchCmd(log *zap.SugaredLogger) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <name> <field> <term>",
		Short: "run a single-term search and print matching document IDs",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, field, term := args[0], args[1], args[2]

			mgr, err := openManager(log)
			if err != nil {
				return err
			}
			idx, err := mgr.OpenIndex(name)
			if err != nil {
				return err
			}

			lease := idx.Searcher()
			defer lease.Release()

			results, err := lease.Searcher().Search(field, term, limit)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			for _, r := range results {
				fmt.Printf("%s\tdoc=%d\tscore=%.2f\n", r.SegmentID, r.DocID, r.Score)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	return cmd
}
