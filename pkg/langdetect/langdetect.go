// Package langdetect tags transcribed text with a language code by comparing
// how many letters belong to each of two scripts.
package langdetect

import (
	"unicode"
	"unicode/utf8"
)

const (
	Unknown = "unknown"
	Mixed   = "mixed"

	DefaultUpperRatio = 0.7
	DefaultLowerRatio = 0.3
)

// Script names a language tag and the runes that count toward it.
type Script struct {
	Tag     string
	Matches func(r rune) bool
}

// CJKUnified matches the CJK Unified Ideographs block (U+4E00–U+9FFF).
var CJKUnified = Script{
	Tag: "zh",
	Matches: func(r rune) bool {
		return r >= 0x4E00 && r <= 0x9FFF
	},
}

// ASCIILetters matches A–Z and a–z.
var ASCIILetters = Script{
	Tag: "en",
	Matches: func(r rune) bool {
		return r < utf8.RuneSelf && unicode.IsLetter(r)
	},
}

// ScriptRatioClassifier returns Primary.Tag when the primary share of
// counted letters is above Upper, Secondary.Tag when below Lower, and
// "mixed" otherwise. Text with no counted letters is "unknown".
type ScriptRatioClassifier struct {
	Primary   Script
	Secondary Script
	Upper     float64
	Lower     float64
}

// New returns a classifier for the given script pair with the default
// 0.7 / 0.3 thresholds.
func New(primary, secondary Script) *ScriptRatioClassifier {
	return &ScriptRatioClassifier{
		Primary:   primary,
		Secondary: secondary,
		Upper:     DefaultUpperRatio,
		Lower:     DefaultLowerRatio,
	}
}

// NewChineseEnglish is the default zh/en classifier.
func NewChineseEnglish() *ScriptRatioClassifier {
	return New(CJKUnified, ASCIILetters)
}

// Classify implements services.LanguageClassifier.
func (c *ScriptRatioClassifier) Classify(text string) string {
	if text == "" {
		return Unknown
	}

	var primary, secondary int
	for _, r := range text {
		switch {
		case c.Primary.Matches(r):
			primary++
		case c.Secondary.Matches(r):
			secondary++
		}
	}

	total := primary + secondary
	if total == 0 {
		return Unknown
	}

	ratio := float64(primary) / float64(total)
	switch {
	case ratio > c.Upper:
		return c.Primary.Tag
	case ratio < c.Lower:
		return c.Secondary.Tag
	default:
		return Mixed
	}
}
