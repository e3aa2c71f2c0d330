package services

import (
	"regexp"
	"strings"
)

// Inline math decoding rewrites $^...$, $_...$ and $\name$ spans into
// Unicode presentation forms for plain-text citation rendering. This
// transform is one-way; there is no encoder.

// superscripts holds the superscript forms for digits, signs, parentheses
// and the Latin letters Unicode provides a superscript for (there is no
// superscript q).
var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽', ')': '⁾',
	'a': 'ᵃ', 'b': 'ᵇ', 'c': 'ᶜ', 'd': 'ᵈ', 'e': 'ᵉ',
	'f': 'ᶠ', 'g': 'ᵍ', 'h': 'ʰ', 'i': 'ⁱ', 'j': 'ʲ',
	'k': 'ᵏ', 'l': 'ˡ', 'm': 'ᵐ', 'n': 'ⁿ', 'o': 'ᵒ',
	'p': 'ᵖ', 'r': 'ʳ', 's': 'ˢ', 't': 'ᵗ', 'u': 'ᵘ',
	'v': 'ᵛ', 'w': 'ʷ', 'x': 'ˣ', 'y': 'ʸ', 'z': 'ᶻ',
}

// subscripts is sparser; Unicode only defines subscript forms for a
// subset of the Latin letters.
var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄',
	'5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '=': '₌', '(': '₍', ')': '₎',
	'a': 'ₐ', 'e': 'ₑ', 'h': 'ₕ', 'i': 'ᵢ', 'j': 'ⱼ',
	'k': 'ₖ', 'l': 'ₗ', 'm': 'ₘ', 'n': 'ₙ', 'o': 'ₒ',
	'p': 'ₚ', 'r': 'ᵣ', 's': 'ₛ', 't': 'ₜ', 'u': 'ᵤ',
	'v': 'ᵥ', 'x': 'ₓ',
}

// greekLetters maps LaTeX Greek command names to their Unicode letters.
// Both the lambda and lamda spellings are accepted, in both cases.
var greekLetters = map[string]rune{
	"alpha": 'α', "beta": 'β', "gamma": 'γ', "delta": 'δ', "epsilon": 'ε',
	"zeta": 'ζ', "eta": 'η', "theta": 'θ', "iota": 'ι', "kappa": 'κ',
	"lambda": 'λ', "lamda": 'λ', "mu": 'μ', "nu": 'ν', "xi": 'ξ',
	"omicron": 'ο', "pi": 'π', "rho": 'ρ', "sigma": 'σ', "tau": 'τ',
	"upsilon": 'υ', "phi": 'φ', "chi": 'χ', "psi": 'ψ', "omega": 'ω',

	"Alpha": 'Α', "Beta": 'Β', "Gamma": 'Γ', "Delta": 'Δ', "Epsilon": 'Ε',
	"Zeta": 'Ζ', "Eta": 'Η', "Theta": 'Θ', "Iota": 'Ι', "Kappa": 'Κ',
	"Lambda": 'Λ', "Lamda": 'Λ', "Mu": 'Μ', "Nu": 'Ν', "Xi": 'Ξ',
	"Omicron": 'Ο', "Pi": 'Π', "Rho": 'Ρ', "Sigma": 'Σ', "Tau": 'Τ',
	"Upsilon": 'Υ', "Phi": 'Φ', "Chi": 'Χ', "Psi": 'Ψ', "Omega": 'Ω',
}

var (
	scriptSpanRe = regexp.MustCompile(`\$(\^|_)([0-9A-Za-z+\-=()]+)\$`)
	greekSpanRe  = regexp.MustCompile(`\$\\([A-Za-z]+)\$`)
)

// DecodeMathSymbols rewrites inline math spans to Unicode: $^2$ becomes a
// superscript two, $_2$ a subscript two and $\lambda$ the Greek letter.
// Characters without a presentation form, and unknown Greek names, are
// left as they are.
func DecodeMathSymbols(text string) string {
	text = scriptSpanRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := scriptSpanRe.FindStringSubmatch(m)
		table := superscripts
		if sub[1] == "_" {
			table = subscripts
		}
		var b strings.Builder
		for _, r := range sub[2] {
			if mapped, ok := table[r]; ok {
				b.WriteRune(mapped)
			} else {
				b.WriteRune(r)
			}
		}
		return b.String()
	})
	return greekSpanRe.ReplaceAllStringFunc(text, func(m string) string {
		name := greekSpanRe.FindStringSubmatch(m)[1]
		if r, ok := greekLetters[name]; ok {
			return string(r)
		}
		return m
	})
}
