package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, strings.NewReader(input), &out)
	return out.String(), err
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		profile string
		keymap  string
		rest    []string
	}{
		{"defaults", nil, "basic", "", nil},
		{"separate value", []string{"--profile", "extended", "1+1"}, "extended", "", []string{"1+1"}},
		{"equals value", []string{"-profile=extended", "--keymap=k.toml"}, "extended", "k.toml", nil},
		{"negative numbers pass through", []string{"-5", "*", "2"}, "basic", "", []string{"-5", "*", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, rest, err := parseOptions(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.profile, opts.profile)
			assert.Equal(t, tt.keymap, opts.keymapFile)
			assert.Equal(t, tt.rest, rest)
		})
	}

	_, _, err := parseOptions([]string{"--profile"})
	assert.ErrorContains(t, err, "requires a value")
}

func TestEval(t *testing.T) {
	out, err := runCmd(t, "", "eval", "2+3*4")
	require.NoError(t, err)
	assert.Equal(t, "14\n", out)

	out, err = runCmd(t, "", "eval", "1234", "*", "1000")
	require.NoError(t, err)
	assert.Equal(t, "1,234,000\n", out)

	_, err = runCmd(t, "", "eval", "1/0")
	assert.ErrorContains(t, err, "division by zero")

	_, err = runCmd(t, "", "eval")
	assert.ErrorContains(t, err, "usage")
}

func TestKeys(t *testing.T) {
	out, err := runCmd(t, "", "keys", "2+3*4=")
	require.NoError(t, err)
	assert.Equal(t, "  [20]\n\n  2 + 3 × 4 = 20\n", out)

	out, err = runCmd(t, "", "keys", "--profile", "extended", "1 + 2 +")
	require.NoError(t, err)
	assert.Equal(t, "  1 + 2 +\n  [3]\n", out)

	_, err = runCmd(t, "", "keys", "--profile", "basic", "50%")
	assert.ErrorContains(t, err, "unbound key", "percent is bound only by the extended profile")
}

func TestREPL(t *testing.T) {
	input := strings.Join([]string{
		"12 + 3",
		"=",
		"?",
		":history",
		":quit",
		"9",
	}, "\n")

	out, err := runCmd(t, input)
	require.NoError(t, err)

	assert.Contains(t, out, "(basic profile)")
	assert.Contains(t, out, "  12 +\n  [3]\n")
	assert.Contains(t, out, "  [15]\n")
	assert.Contains(t, out, "! in \"?\": unbound key")
	assert.Contains(t, out, "  12 + 3 = 15\n")
	assert.NotContains(t, out, "[9]", "input after :quit is ignored")
}

func TestREPL_EOF(t *testing.T) {
	out, err := runCmd(t, "1000000\n")
	require.NoError(t, err)
	assert.Contains(t, out, "[1,000,000]")
}

func TestKeymapAndProfilesFiles(t *testing.T) {
	dir := t.TempDir()
	keymapPath := filepath.Join(dir, "keys.toml")
	require.NoError(t, os.WriteFile(keymapPath, []byte("[bindings]\n\"p\" = \"+\"\n\"e\" = \"equals\"\n"), 0644))
	profilesPath := filepath.Join(dir, "profiles.toml")
	require.NoError(t, os.WriteFile(profilesPath, []byte("[profiles.euro]\ngrouping = \".\"\nprecision = 2\n"), 0644))

	out, err := runCmd(t, "", "keys", "--keymap", keymapPath, "40p2e")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "  [42]\n"), out)

	out, err = runCmd(t, "", "profiles", "--profiles", profilesPath)
	require.NoError(t, err)
	assert.Contains(t, out, "euro")
	assert.Contains(t, out, "max_digits=15")

	out, err = runCmd(t, "", "eval", "--profiles", profilesPath, "--profile", "euro", "1000/3")
	require.NoError(t, err)
	assert.Equal(t, "333.33\n", out)
}

func TestVersionAndUnknown(t *testing.T) {
	out, err := runCmd(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "abacus version dev\n", out)

	_, err = runCmd(t, "", "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}
