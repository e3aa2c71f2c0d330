package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeMathScripts(t *testing.T) {
	assert.Equal(t, "m²", DecodeMathSymbols("m$^2$"))
	assert.Equal(t, "H₂O", DecodeMathSymbols("H$_2$O"))
	assert.Equal(t, "cm⁻¹", DecodeMathSymbols("cm$^-1$"))
	assert.Equal(t, "xⁱ", DecodeMathSymbols("x$^i$"))
	assert.Equal(t, "CO₂ uptake per m²", DecodeMathSymbols("CO$_2$ uptake per m$^2$"))
}

func TestDecodeMathGreek(t *testing.T) {
	assert.Equal(t, "λ", DecodeMathSymbols(`$\lambda$`))
	assert.Equal(t, "λ", DecodeMathSymbols(`$\lamda$`))
	assert.Equal(t, "Λ", DecodeMathSymbols(`$\Lambda$`))
	assert.Equal(t, "Ω", DecodeMathSymbols(`$\Omega$`))
	assert.Equal(t, "α-quartz", DecodeMathSymbols(`$\alpha$-quartz`))
}

func TestDecodeMathUnknownsPassThrough(t *testing.T) {
	// Names outside the Greek table keep their span untouched.
	assert.Equal(t, `$\foo$`, DecodeMathSymbols(`$\foo$`))
	// Characters without a script form stay as they are inside the span.
	assert.Equal(t, "x₂q", DecodeMathSymbols("x$_2q$"))
	// Text without math spans is left alone.
	plain := "solvation free energy of $5 per sample"
	assert.Equal(t, plain, DecodeMathSymbols(plain))
}
