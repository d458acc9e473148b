package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/horago/hnsw"
)

const searchIndexName = "search"

type searchOptions struct {
	index   string
	k       int
	vector  string
	queries string
	asJSON  bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search an index dump",
		Long: `Search an index dump for the nearest neighbors of one or more queries.

Examples:
  hora search --index index.hora --vector 1,0.5,0 --k 5
  hora search --index index.hora --queries queries.jsonl --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.index, "index", "", "dump path in the configured store")
	cmd.Flags().IntVarP(&opts.k, "k", "k", 10, "number of neighbors")
	cmd.Flags().StringVar(&opts.vector, "vector", "", "comma-separated query vector")
	cmd.Flags().StringVar(&opts.queries, "queries", "", "JSONL file of {\"vector\": [...]} queries")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	_ = cmd.MarkFlagRequired("index")
	cmd.MarkFlagsMutuallyExclusive("vector", "queries")
	cmd.MarkFlagsOneRequired("vector", "queries")
	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, opts *searchOptions) error {
	var queries [][]float64
	if opts.vector != "" {
		q, err := parseVector(opts.vector)
		if err != nil {
			return err
		}
		queries = [][]float64{q}
	} else {
		f, err := os.Open(opts.queries)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := readRecords(f, func(int) {}, func(r record) error {
			queries = append(queries, r.Vector)
			return nil
		}); err != nil {
			return err
		}
	}

	e, err := root.setup(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = e.close() }()

	if err := e.registry.LoadContext(cmd.Context(), searchIndexName, opts.index); err != nil {
		return err
	}

	batch, err := e.registry.SearchBatch(cmd.Context(), searchIndexName, opts.k, queries)
	if err != nil {
		return err
	}

	return printResults(cmd.OutOrStdout(), batch, opts.asJSON)
}

func printResults(w io.Writer, batch [][]hnsw.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, results := range batch {
			if results == nil {
				results = []hnsw.Result{}
			}
			if err := enc.Encode(results); err != nil {
				return err
			}
		}
		return nil
	}

	for i, results := range batch {
		if len(batch) > 1 {
			fmt.Fprintf(w, "query %d\n", i)
		}
		for rank, r := range results {
			fmt.Fprintf(w, "%d\t%s\t%g\n", rank+1, r.Label, r.Distance)
		}
	}
	return nil
}

func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("empty vector")
	}
	return out, nil
}
