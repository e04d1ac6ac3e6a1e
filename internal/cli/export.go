package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/relmark/internal/pipeline"
	"github.com/ppiankov/relmark/internal/store"
)

var (
	dbPath        string
	relDocument   string
	relLabel      string
	relLimit      int
	relJSONOutput bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file|url>...",
	Short: "Annotate inputs and store them in a SQLite database",
	Long: `Export annotates each input and stores the document, every annotation
and the resolved relation triples in SQLite. Exporting the same name again
replaces the stored document.

Example:
  relmark export a.lif b.lif --db relations.db
  relmark relations --db relations.db --label loves`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

// relationsCmd represents the relations command
var relationsCmd = &cobra.Command{
	Use:   "relations",
	Short: "List relation triples stored by export",
	Args:  cobra.NoArgs,
	RunE:  runRelations,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(relationsCmd)

	for _, c := range []*cobra.Command{exportCmd, relationsCmd} {
		c.Flags().StringVar(&dbPath, "db", "relmark.db", "SQLite database path")
	}
	relationsCmd.Flags().StringVar(&relDocument, "doc", "", "only relations of this document")
	relationsCmd.Flags().StringVar(&relLabel, "label", "", "only relations with this label")
	relationsCmd.Flags().IntVar(&relLimit, "limit", 0, "maximum number of triples (0 = all)")
	relationsCmd.Flags().BoolVar(&relJSONOutput, "json", false, "print JSON lines instead of a table")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()

	a, err := newApp()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	failed := 0
	for _, arg := range args {
		in, err := a.loader.Load(ctx, arg)
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "✗ %s: %v\n", arg, err)
			continue
		}

		run := pipeline.Execute(ctx, a.service, in.Data)
		if run.Err != nil || run.Document == nil {
			failed++
			fmt.Fprintf(stderr, "✗ %s: %v\n", arg, run.Err)
			continue
		}

		if _, err := st.SaveDocument(ctx, arg, run.Document); err != nil {
			failed++
			fmt.Fprintf(stderr, "✗ %s: %v\n", arg, err)
			continue
		}
		fmt.Fprintf(stderr, "✓ %s (%d relations)\n", arg, run.Stats.Relations)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d inputs", errAnnotationFailed, failed, len(args))
	}
	return nil
}

func runRelations(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	triples, err := st.Relations(ctx, store.RelationFilter{Document: relDocument, Label: relLabel, Limit: relLimit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if relJSONOutput {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		for _, t := range triples {
			if err := enc.Encode(t); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tID\tSUBJECT\tPREDICATE\tOBJECT")
	for _, t := range triples {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Document, t.ID, t.Subject, t.Predicate, t.Object)
	}
	return tw.Flush()
}
