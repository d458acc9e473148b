package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/horago/distance"
)

// record is one line of a JSONL vector file.
type record struct {
	Label  string    `json:"label"`
	Vector []float64 `json:"vector"`
}

type buildOptions struct {
	input  string
	output string
	metric string
	name   string
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an index dump from a JSONL vector file",
		Long: `Build an index dump from a JSONL vector file.

Each input line is an object {"label": "...", "vector": [...]}. The
dimension is taken from the first line.

Examples:
  hora build --input vectors.jsonl --output index.hora
  cat vectors.jsonl | hora build --input - --output index.hora --metric angular`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "JSONL input file, - for stdin")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "dump path in the configured store")
	cmd.Flags().StringVarP(&opts.metric, "metric", "m", distance.Euclidean.String(), "distance metric")
	cmd.Flags().StringVar(&opts.name, "name", "index", "index name used in logs")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runBuild(cmd *cobra.Command, root *rootOptions, opts *buildOptions) error {
	metric := distance.Parse(opts.metric)
	if !metric.Valid() {
		return fmt.Errorf("unknown metric %q", opts.metric)
	}

	in := cmd.InOrStdin()
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	e, err := root.setup(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = e.close() }()

	n, err := readRecords(in, func(dim int) {
		e.registry.Create(opts.name, dim)
	}, func(r record) error {
		return e.registry.Add(opts.name, r.Vector, r.Label)
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("no vectors in input")
	}

	if err := e.registry.BuildMetric(opts.name, metric); err != nil {
		return err
	}
	if err := e.registry.DumpContext(cmd.Context(), opts.name, opts.output); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "built %d vectors with %s into %s\n", n, metric, opts.output)
	return nil
}

// readRecords decodes JSONL records, calling create with the dimension of
// the first record before the first add.
func readRecords(r io.Reader, create func(dim int), add func(record) error) (int, error) {
	dec := json.NewDecoder(bufio.NewReader(r))

	n := 0
	for {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("record %d: %w", n+1, err)
		}
		if n == 0 {
			create(len(rec.Vector))
		}
		if err := add(rec); err != nil {
			return n, fmt.Errorf("record %d: %w", n+1, err)
		}
		n++
	}
}
