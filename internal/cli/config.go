package cli

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oleg578/linecsv"
)

// DialectConfig is the configuration form of a linecsv.Dialect.
type DialectConfig struct {
	Delimiter          string `mapstructure:"delimiter" validate:"required,len=1|eq=tab"`
	Quote              string `mapstructure:"quote" validate:"required,len=1"`
	Escape             string `mapstructure:"escape" validate:"omitempty,len=1"`
	Quoting            string `mapstructure:"quoting" validate:"oneof=always as_needed non_numeric"`
	Terminator         string `mapstructure:"terminator" validate:"oneof=lf crlf cr"`
	Null               string `mapstructure:"null"`
	TrailingTerminator bool   `mapstructure:"trailing-terminator"`
	Strict             bool   `mapstructure:"strict"`
	SkipEmptyLines     bool   `mapstructure:"skip-empty-lines"`
}

// Config holds the input and output dialects of a command.
type Config struct {
	In  DialectConfig `mapstructure:"in"`
	Out DialectConfig `mapstructure:"out"`
}

var terminators = map[string]string{
	"lf":   "\n",
	"crlf": "\r\n",
	"cr":   "\r",
}

var validate = validator.New()

// addDialectFlags registers the flags of one dialect section ("in" or "out").
func addDialectFlags(flags *pflag.FlagSet, section string) {
	flags.String(section+"-delimiter", ",", "field delimiter (single character or \"tab\")")
	flags.String(section+"-quote", `"`, "quote character")
	flags.String(section+"-escape", "", "escape character (defaults to the quote character)")
	flags.String(section+"-quoting", "as_needed", "quoting policy (always|as_needed|non_numeric)")
	flags.String(section+"-terminator", "lf", "line terminator (lf|crlf|cr)")
	flags.String(section+"-null", "", "text written for absent values")
	flags.Bool(section+"-trailing-terminator", true, "terminate the last row")
	flags.Bool(section+"-strict", false, "reject malformed quoting instead of recovering")
	flags.Bool(section+"-skip-empty-lines", false, "ignore empty lines between rows")
}

var dialectKeys = []string{
	"delimiter", "quote", "escape", "quoting", "terminator", "null",
	"trailing-terminator", "strict", "skip-empty-lines",
}

// loadConfig merges flags, RECSV_* environment variables and the optional config file.
// Flags set on the command line win over the environment, which wins over the file.
func loadConfig(flags *pflag.FlagSet, configFile string, sections ...string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("recsv")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, section := range sections {
		for _, key := range dialectKeys {
			if err := v.BindPFlag(section+"."+key, flags.Lookup(section+"-"+key)); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s-%s: %w", section, key, err)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{In: defaultDialectConfig(), Out: defaultDialectConfig()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid dialect config: %s", describeValidation(verrs))
		}
		return nil, err
	}
	return cfg, nil
}

func defaultDialectConfig() DialectConfig {
	return DialectConfig{
		Delimiter:          ",",
		Quote:              `"`,
		Quoting:            "as_needed",
		Terminator:         "lf",
		TrailingTerminator: true,
	}
}

func describeValidation(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value())))
	}
	return strings.Join(msgs, "; ")
}

// Dialect converts the validated configuration into a linecsv.Dialect.
func (c DialectConfig) Dialect() (linecsv.Dialect, error) {
	d := linecsv.Dialect{
		Delimiter:          firstRune(c.Delimiter),
		Quote:              firstRune(c.Quote),
		LineTerminator:     terminators[c.Terminator],
		NullValue:          c.Null,
		TrailingTerminator: c.TrailingTerminator,
		Strict:             c.Strict,
		SkipEmptyLines:     c.SkipEmptyLines,
	}
	if c.Delimiter == "tab" {
		d.Delimiter = '\t'
	}
	d.Escape = d.Quote
	if c.Escape != "" {
		d.Escape = firstRune(c.Escape)
	}

	quoting, err := linecsv.ParseQuotingPolicy(c.Quoting)
	if err != nil {
		return linecsv.Dialect{}, err
	}
	d.Quoting = quoting

	if err := d.Validate(); err != nil {
		return linecsv.Dialect{}, err
	}
	return d, nil
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
