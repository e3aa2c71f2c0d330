package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeAccents(t *testing.T) {
	cases := map[string]string{
		`\"{u}`:    "ü",
		`\'{e}`:    "é",
		"\\`{a}":   "à",
		`\^{o}`:    "ô",
		`\~{n}`:    "ñ",
		`\={a}`:    "ā",
		`\.{z}`:    "ż",
		`\c{c}`:    "ç",
		`\v{c}`:    "č",
		`\u{g}`:    "ğ",
		`\H{o}`:    "ő",
		`\k{a}`:    "ą",
		`\r{u}`:    "ů",
		`\d{s}`:    "ṣ",
		`\b{h}`:    "ẖ",
		`\t{a}`:    "a͡",
		`\"{\i}`:     "ı̈",
		`\v{\j}`:     "ȷ̌",
		`M\"{o}bius`: "Möbius",
	}
	for in, want := range cases {
		assert.Equal(t, want, DecodeLaTeX(in), "decoding %q", in)
	}
}

func TestDecodeSymbols(t *testing.T) {
	assert.Equal(t, "ıȷłŁøØ", DecodeLaTeX(`\i\j\l\L\o\O`))
	assert.Equal(t, "Søren", DecodeLaTeX(`S\oren`))
}

func TestDecodeDashes(t *testing.T) {
	assert.Equal(t, "- – —", DecodeLaTeX("- -- ---"))
	assert.Equal(t, "1–19", DecodeLaTeX("1--19"))
	assert.Equal(t, "rock—paper", DecodeLaTeX("rock---paper"))
	// Runs of four or more hyphens are not dashes.
	assert.Equal(t, "----", DecodeLaTeX("----"))
	assert.Equal(t, "------", DecodeLaTeX("------"))
}

func TestDecodeStripsBraces(t *testing.T) {
	assert.Equal(t, "DNA", DecodeLaTeX("{DNA}"))
	assert.Equal(t, "The IUPAC rules", DecodeLaTeX("The {IUPAC} rules"))
}

func TestEncodePrecomposedLetters(t *testing.T) {
	assert.Equal(t, `\"{o}`, EncodeLaTeX("ö"))
	assert.Equal(t, `\'{e}`, EncodeLaTeX("é"))
	assert.Equal(t, `\~{n}`, EncodeLaTeX("ñ"))
	assert.Equal(t, `\v{R}ez\'{a}\v{c}`, EncodeLaTeX("Řezáč"))
	assert.Equal(t, `J\"{u}rgen`, EncodeLaTeX("Jürgen"))
}

func TestEncodeCombiningPairs(t *testing.T) {
	assert.Equal(t, `\"{u}`, EncodeLaTeX("ü"))
	assert.Equal(t, `\t{a}`, EncodeLaTeX("a͡"))
	assert.Equal(t, `\"{\i}`, EncodeLaTeX("ı̈"))
}

func TestEncodeSymbolsAndDashes(t *testing.T) {
	assert.Equal(t, `\i\j\l\L\o\O`, EncodeLaTeX("ıȷłŁøØ"))
	assert.Equal(t, "1--19", EncodeLaTeX("1–19"))
	assert.Equal(t, "rock---paper", EncodeLaTeX("rock—paper"))
}

// Every accent command over every plain and dotless letter must survive a
// decode/encode round trip unchanged.
func TestAccentRoundTrip(t *testing.T) {
	letters := []rune(codecAlphabet)
	commands := []rune{'"', '\'', '.', '=', '^', '`', '|', '~',
		'b', 'c', 'C', 'd', 'f', 'h', 'H', 'k', 'r', 't', 'u', 'U', 'v'}
	for _, cmd := range commands {
		for _, letter := range letters {
			escape := `\` + string(cmd) + `{` + string(letter) + `}`
			assert.Equal(t, escape, EncodeLaTeX(DecodeLaTeX(escape)), "round trip of %q", escape)
		}
		for _, symbol := range []string{`\i`, `\j`} {
			escape := `\` + string(cmd) + `{` + symbol + `}`
			assert.Equal(t, escape, EncodeLaTeX(DecodeLaTeX(escape)), "round trip of %q", escape)
		}
	}
}

func TestSymbolAndDashRoundTrip(t *testing.T) {
	for _, escape := range []string{`\i`, `\j`, `\l`, `\L`, `\o`, `\O`, "a--b", "a---b"} {
		assert.Equal(t, escape, EncodeLaTeX(DecodeLaTeX(escape)), "round trip of %q", escape)
	}
}

func TestPlainTextPassesThrough(t *testing.T) {
	plain := "Fast Parallel Algorithms for Short-Range Molecular Dynamics"
	assert.Equal(t, plain, DecodeLaTeX(plain))
	assert.Equal(t, plain, EncodeLaTeX(plain))
}
