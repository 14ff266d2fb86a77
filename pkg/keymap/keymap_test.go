package keymap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/abacus/pkg/calc"
)

func TestDefault_Translate(t *testing.T) {
	m := Default(calc.Basic())

	tests := []struct {
		token string
		want  calc.Key
	}{
		{"7", calc.Digit('7')},
		{".", calc.Digit('.')},
		{"+", calc.Op(calc.OpAdd)},
		{"×", calc.Op(calc.OpMultiply)},
		{"x", calc.Op(calc.OpMultiply)},
		{"÷", calc.Op(calc.OpDivide)},
		{"Enter", calc.Equals},
		{"Backspace", calc.Delete},
		{"Escape", calc.Clear},
		{"AC", calc.Clear},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := m.Translate(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefault_ProfileGatedKeys(t *testing.T) {
	basic := Default(calc.Basic())
	_, err := basic.Translate("%")
	assert.ErrorIs(t, err, ErrUnboundKey)
	_, err = basic.Translate("clear-history")
	assert.ErrorIs(t, err, ErrUnboundKey)

	extended := Default(calc.Extended())
	k, err := extended.Translate("%")
	require.NoError(t, err)
	assert.Equal(t, calc.Op(calc.OpPercent), k)

	k, err = extended.Translate("ch")
	require.NoError(t, err)
	assert.Equal(t, calc.ClearHistory, k)
}

func TestParseSequence(t *testing.T) {
	m := Default(calc.Basic())

	keys, err := m.ParseSequence("12+3 =")
	require.NoError(t, err)
	assert.Equal(t, []calc.Key{
		calc.Digit('1'), calc.Digit('2'), calc.Op(calc.OpAdd), calc.Digit('3'), calc.Equals,
	}, keys)

	keys, err = m.ParseSequence("9 × 9 Enter clear")
	require.NoError(t, err)
	assert.Equal(t, []calc.Key{
		calc.Digit('9'), calc.Op(calc.OpMultiply), calc.Digit('9'), calc.Equals, calc.Clear,
	}, keys)

	_, err = m.ParseSequence("1 ^ 2")
	assert.ErrorIs(t, err, ErrUnboundKey)

	keys, err = m.ParseSequence("   ")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestParseSequence_GroupingSeparator(t *testing.T) {
	run := func(p calc.Profile, line string) string {
		t.Helper()
		keys, err := Default(p).ParseSequence(line)
		require.NoError(t, err)
		e := calc.New(p)
		s := e.Initial()
		for _, k := range keys {
			s = e.Apply(s, k)
		}
		return s.Display
	}

	basic := calc.Basic()
	_, err := Default(basic).Translate(",")
	assert.ErrorIs(t, err, ErrUnboundKey, "comma groups digits, it is not a decimal point")

	// A displayed numeral replays to the same value.
	e := calc.New(basic)
	s := e.Initial()
	for _, d := range "1234567.5" {
		s = e.InputDigit(s, byte(d))
	}
	shown := e.Display(s)
	require.Equal(t, "1,234,567.5", shown)
	assert.Equal(t, "1234567.5", run(basic, shown))
	assert.Equal(t, "2468", run(basic, "1,234 × 2 ="))

	swiss := calc.Basic()
	swiss.Grouping = "'"
	assert.Equal(t, "1234.5", run(swiss, "1'234,5"), "comma is the decimal point when it does not group")
}

func TestParseSequence_DrivesEngine(t *testing.T) {
	m := Default(calc.Basic())
	e := calc.New(calc.Basic())

	keys, err := m.ParseSequence("2 + 3 × 4 =")
	require.NoError(t, err)

	s := e.Initial()
	for _, k := range keys {
		s = e.Apply(s, k)
	}
	assert.Equal(t, "20", s.Display)
}

func TestParseAction(t *testing.T) {
	tests := map[string]calc.Key{
		"equals":        calc.Equals,
		"=":             calc.Equals,
		"clear":         calc.Clear,
		"backspace":     calc.Delete,
		"clear-history": calc.ClearHistory,
		"5":             calc.Digit('5'),
		".":             calc.Digit('.'),
		"divide":        calc.Op(calc.OpDivide),
		"-":             calc.Op(calc.OpSubtract),
	}
	for action, want := range tests {
		got, err := ParseAction(action)
		require.NoError(t, err, action)
		assert.Equal(t, want, got, action)
	}

	_, err := ParseAction("launch")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestParse_Overrides(t *testing.T) {
	doc := `
unbind = ["x"]

[bindings]
"q" = "clear"
"p" = "+"
"Numpad5" = "5"
`
	m, err := Parse(doc, calc.Basic())
	require.NoError(t, err)

	k, err := m.Translate("q")
	require.NoError(t, err)
	assert.Equal(t, calc.Clear, k)

	k, err = m.Translate("p")
	require.NoError(t, err)
	assert.Equal(t, calc.Op(calc.OpAdd), k)

	_, err = m.Translate("x")
	assert.ErrorIs(t, err, ErrUnboundKey)

	_, err = m.Translate("*")
	assert.NoError(t, err, "other defaults survive")
}

func TestParse_BadAction(t *testing.T) {
	_, err := Parse(`[bindings]
"q" = "explode"`, calc.Basic())
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.toml")
	require.NoError(t, os.WriteFile(path, []byte("[bindings]\n\"z\" = \"0\"\n"), 0644))

	m, err := LoadFile(path, calc.Extended())
	require.NoError(t, err)

	k, err := m.Translate("z")
	require.NoError(t, err)
	assert.Equal(t, calc.Digit('0'), k)
	assert.Contains(t, m.Tokens(), "%")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"), calc.Basic())
	assert.Error(t, err)
}
