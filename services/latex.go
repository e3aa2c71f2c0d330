package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// The LaTeX/UTF-8 codec translates accents, special symbols and dashes
// between LaTeX notation and Unicode. Accents decode to a base letter
// followed by a combining diacritical mark, never to a precomposed
// codepoint, so EncodeLaTeX can always reverse them.

const codecAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	dotlessI = 'ı' // ı
	dotlessJ = 'ȷ' // ȷ
	enDash   = '–'
	emDash   = '—'
)

// accentMarks maps the command character of \<char>{<letter>} to its
// combining diacritical mark.
var accentMarks = map[rune]rune{
	'"':  '̈', // diaeresis
	'\'': '́', // acute accent
	'.':  '̇', // dot above
	'=':  '̄', // macron
	'^':  '̂', // circumflex accent
	'`':  '̀', // grave accent
	'|':  '̍', // vertical line above
	'~':  '̃', // tilde
	'b':  '̱', // macron below
	'c':  '̧', // cedilla
	'C':  '̏', // double grave accent
	'd':  '̣', // dot below
	'f':  '̑', // inverted breve
	'h':  '̉', // hook above
	'H':  '̋', // double acute accent
	'k':  '̨', // ogonek
	'r':  '̊', // ring above
	't':  '͡', // double inverted breve
	'u':  '̆', // breve
	'U':  '̎', // double vertical line above
	'v':  '̌', // caron
}

// symbols maps the single-letter commands of form \<letter> to their
// dotless and stroked Unicode letters.
var symbols = map[rune]rune{
	'i': dotlessI,
	'j': dotlessJ,
	'l': 'ł', // ł
	'L': 'Ł', // Ł
	'o': 'ø', // ø
	'O': 'Ø', // Ø
}

var (
	symbolRe = regexp.MustCompile(`\\([ijlLoO])`)
	accentRe = regexp.MustCompile("\\\\([\"'.=^`|~bcCdfhHkrtuUv])\\{([a-zA-Zıȷ])\\}")
	braceRe  = regexp.MustCompile(`\{([^}]*)\}`)
)

// pairEscapes maps a base letter plus combining mark back to its LaTeX
// command; singleEscapes covers NFC-precomposed accented letters, the
// special symbols and the dashes. Both are read-only after init.
var (
	pairEscapes   = map[string]string{}
	singleEscapes = map[string]string{}
)

func init() {
	bases := []rune(codecAlphabet)
	bases = append(bases, dotlessI, dotlessJ)
	for cmd, mark := range accentMarks {
		for _, base := range bases {
			seq := string(base) + string(mark)
			pairEscapes[seq] = `\` + string(cmd) + `{` + string(base) + `}`
			if composed := norm.NFC.String(seq); utf8.RuneCountInString(composed) == 1 {
				singleEscapes[composed] = pairEscapes[seq]
			}
		}
	}
	for cmd, sym := range symbols {
		singleEscapes[string(sym)] = `\` + string(cmd)
	}
	singleEscapes[string(enDash)] = "--"
	singleEscapes[string(emDash)] = "---"
}

// foldDashes turns runs of exactly two or three hyphens into en and em
// dashes. Lone hyphens and longer runs pass through untouched.
func foldDashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '-' {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == '-' {
			j++
		}
		switch j - i {
		case 2:
			b.WriteRune(enDash)
		case 3:
			b.WriteRune(emDash)
		default:
			b.WriteString(s[i:j])
		}
		i = j
	}
	return b.String()
}

// DecodeLaTeX replaces LaTeX dash, symbol and accent notation with the
// Unicode equivalents and strips the braces used to protect
// capitalization. Decoding the symbols before the accents lets commands
// like \"{\i} resolve their dotless argument first.
func DecodeLaTeX(text string) string {
	text = foldDashes(text)
	text = symbolRe.ReplaceAllStringFunc(text, func(m string) string {
		return string(symbols[rune(m[1])])
	})
	text = accentRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := accentRe.FindStringSubmatch(m)
		return sub[2] + string(accentMarks[rune(sub[1][0])])
	})
	return braceRe.ReplaceAllString(text, "$1")
}

// EncodeLaTeX is the inverse of DecodeLaTeX for accents, symbols and
// dashes; brace stripping is lossy and stays stripped. The first pass
// greedily matches two-rune base+combining pairs, the second maps the
// remaining single runes (precomposed accented letters, symbols, dashes).
// One combining mark per letter is assumed; stacked marks are out of
// contract.
func EncodeLaTeX(text string) string {
	runes := []rune(text)
	var pairs strings.Builder
	for i := 0; i < len(runes); {
		if i+1 < len(runes) {
			if esc, ok := pairEscapes[string(runes[i:i+2])]; ok {
				pairs.WriteString(esc)
				i += 2
				continue
			}
		}
		pairs.WriteRune(runes[i])
		i++
	}

	// The pair escapes for dotless letters still hold the bare ı and ȷ
	// runes; this pass rewrites them to \i and \j along with the rest of
	// the single-rune table.
	var out strings.Builder
	for _, r := range pairs.String() {
		if esc, ok := singleEscapes[string(r)]; ok {
			out.WriteString(esc)
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}
