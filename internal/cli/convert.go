package cli

import (
	"fmt"
	"iter"

	"github.com/spf13/cobra"

	"github.com/oleg578/linecsv"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	Output        string
	InputEncoding string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert [input]",
		Short: "Rewrite a CSV stream under a different dialect",
		Long: `Read CSV rows with the input dialect and write them with the output dialect.

Rows are streamed one at a time, so inputs of any size are converted in bounded memory.
Reads stdin when no input (or "-") is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), rootOpts.ConfigFile, "in", "out")
			if err != nil {
				return err
			}
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return runConvert(cmd, rootOpts, opts, cfg, input)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.InputEncoding, "input-encoding", "", "IANA name of the input charset (default utf-8)")
	addDialectFlags(cmd.Flags(), "in")
	addDialectFlags(cmd.Flags(), "out")

	return cmd
}

func runConvert(cmd *cobra.Command, rootOpts *RootOptions, opts *ConvertOptions, cfg *Config, input string) (err error) {
	log := rootOpts.Logger
	inDialect, err := cfg.In.Dialect()
	if err != nil {
		return fmt.Errorf("input dialect: %w", err)
	}
	outDialect, err := cfg.Out.Dialect()
	if err != nil {
		return fmt.Errorf("output dialect: %w", err)
	}

	src, closeInput, err := openInput(input, opts.InputEncoding, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer closeInput()

	dst, err := openOutput(opts.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	r := linecsv.NewReader(linecsv.ScanLines(src), inDialect)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	r.Logger = log

	w := linecsv.NewWriter(dst, outDialect)
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var readErr error
	count := 0
	if err := w.WriteSeq(rowsOf(r, &readErr, &count)); err != nil {
		return err
	}
	if readErr != nil {
		return fmt.Errorf("line %d: %w", r.Line(), readErr)
	}

	log.Info().Int("rows", count).Int("lines", r.Line()).Msg("conversion finished")
	return nil
}

// rowsOf adapts the reader's rows to writer input, parking the first read error in errp.
func rowsOf(r *linecsv.Reader, errp *error, count *int) iter.Seq[[]any] {
	return func(yield func([]any) bool) {
		var fields []any
		for record, err := range r.Rows() {
			if err != nil {
				*errp = err
				return
			}
			fields = fields[:0]
			for _, f := range record {
				fields = append(fields, f)
			}
			*count++
			if !yield(fields) {
				return
			}
		}
	}
}
