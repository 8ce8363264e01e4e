package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oleg578/linecsv"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	InputEncoding string
	Ragged        bool
}

// CheckResult summarises a parsed input.
type CheckResult struct {
	Rows   int
	Fields int
	Lines  int
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check [input]",
		Short: "Parse a CSV stream and report its shape",
		Long: `Parse every row with the input dialect and report the row and field counts.

Fails on the first unterminated quoted field, on malformed quoting in strict mode,
and on rows whose width differs from the first row unless --ragged is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), rootOpts.ConfigFile, "in")
			if err != nil {
				return err
			}
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			res, err := runCheck(cmd, rootOpts, opts, cfg.In, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rows: %d\nfields: %d\nlines: %d\n", res.Rows, res.Fields, res.Lines)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.InputEncoding, "input-encoding", "", "IANA name of the input charset (default utf-8)")
	cmd.Flags().BoolVar(&opts.Ragged, "ragged", false, "allow rows of differing width")
	addDialectFlags(cmd.Flags(), "in")

	return cmd
}

func runCheck(cmd *cobra.Command, rootOpts *RootOptions, opts *CheckOptions, cfg DialectConfig, input string) (*CheckResult, error) {
	d, err := cfg.Dialect()
	if err != nil {
		return nil, fmt.Errorf("input dialect: %w", err)
	}

	src, closeInput, err := openInput(input, opts.InputEncoding, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	defer closeInput()

	r := linecsv.NewReader(linecsv.ScanLines(src), d)
	r.ReuseRecord = true
	r.Logger = rootOpts.Logger
	if opts.Ragged {
		r.FieldsPerRecord = -1
	}

	res := &CheckResult{}
	for record, err := range r.Rows() {
		if err != nil {
			var perr *linecsv.ParseError
			if errors.As(err, &perr) {
				rootOpts.Logger.Error().
					Int("line", perr.Line).
					Int("column", perr.Column).
					Err(perr.Err).
					Msg("check failed")
			}
			return nil, err
		}
		res.Rows++
		if len(record) > res.Fields {
			res.Fields = len(record)
		}
	}
	res.Lines = r.Line()
	return res, nil
}
