package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg578/linecsv"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestConvertGolden(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "convert_non_numeric",
			args: []string{"convert", "--in-delimiter", ";", "--out-quoting", "non_numeric", "testdata/people.csv"},
		},
		{
			name: "convert_pipe_crlf",
			args: []string{"convert", "--config", "testdata/pipe.yaml", "testdata/people.csv"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, err := execute(t, nil, tc.args...)
			require.NoError(t, err)
			newGoldie(t).Assert(t, tc.name, []byte(stdout))
		})
	}
}

func TestConvertStdinToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")

	stdout, _, err := execute(t, strings.NewReader("a\tb\n\"c\td\"\te\n"),
		"convert", "--in-delimiter", "tab", "--out-quoting", "always", "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\"a\",\"b\"\n\"c\td\",\"e\"\n", string(data))
}

func TestConvertEnvironmentOverridesConfig(t *testing.T) {
	t.Setenv("RECSV_OUT_QUOTING", "always")
	t.Setenv("RECSV_OUT_TRAILING_TERMINATOR", "true")

	stdout, _, err := execute(t, nil, "convert", "--config", "testdata/pipe.yaml", "--out-delimiter", ";", "testdata/people.csv")
	require.NoError(t, err)

	lines := strings.Split(stdout, "\r\n")
	assert.Equal(t, `"id";"name";"note"`, lines[0], "flag beats config, env beats config")
	assert.True(t, strings.HasSuffix(stdout, "\r\n"))
}

func TestConvertInputEncoding(t *testing.T) {
	dir := t.TempDir()

	latin1 := filepath.Join(dir, "latin1.csv")
	require.NoError(t, os.WriteFile(latin1, []byte("caf\xe9,1\n"), 0o644))
	stdout, _, err := execute(t, nil, "convert", "--input-encoding", "ISO-8859-1", latin1)
	require.NoError(t, err)
	assert.Equal(t, "café,1\n", stdout)

	bom := filepath.Join(dir, "bom.csv")
	require.NoError(t, os.WriteFile(bom, []byte("\xef\xbb\xbfa,b\n"), 0o644))
	stdout, _, err = execute(t, nil, "convert", bom)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", stdout)

	_, _, err = execute(t, nil, "convert", "--input-encoding", "klingon", bom)
	assert.ErrorContains(t, err, "unknown input encoding")
}

func TestConvertUnterminatedQuote(t *testing.T) {
	stdout, _, err := execute(t, strings.NewReader("a,b\nc,\"d\n"), "convert")
	require.ErrorIs(t, err, linecsv.ErrUnterminatedQuote)
	assert.Equal(t, "a,b\n", stdout, "rows before the failure are still written")
}

func TestConvertInvalidDialect(t *testing.T) {
	_, _, err := execute(t, strings.NewReader("a\n"), "convert", "--in-delimiter", "ab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dialect config")

	_, _, err = execute(t, strings.NewReader("a\n"), "convert", "--out-quoting", "sometimes")
	require.Error(t, err)

	_, _, err = execute(t, strings.NewReader("a\n"), "convert", "--out-delimiter", `"`)
	assert.ErrorIs(t, err, linecsv.ErrInvalidDialect)
}
