package lang

import (
	"strings"
	"unicode"
)

// IsKorean reports whether Hangul code points make up at least half of the
// letters in text. Digits, punctuation and whitespace are ignored so that
// "안녕하세요 btw" still reads as Korean.
func IsKorean(text string) bool {
	var hangul, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Hangul, r) {
			hangul++
		}
	}
	return letters > 0 && hangul*2 >= letters
}

var romanizeTriggers = []string{
	"romanize",
	"romanization",
	"romanized",
	"pronounce",
	"pronunciation",
	"how do you say",
}

// WantsRomanization detects English trigger phrases asking for a
// Latin-alphabet transliteration of the reply.
func WantsRomanization(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range romanizeTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}
