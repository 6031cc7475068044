// Package hangul turns Latin keystrokes typed on the 2-set Korean layout
// into composed Hangul text.
package hangul

import "strings"

var keymap = map[rune]rune{
	'r': 'ㄱ', 'R': 'ㄲ', 's': 'ㄴ', 'e': 'ㄷ', 'E': 'ㄸ',
	'f': 'ㄹ', 'a': 'ㅁ', 'q': 'ㅂ', 'Q': 'ㅃ', 't': 'ㅅ',
	'T': 'ㅆ', 'd': 'ㅇ', 'w': 'ㅈ', 'W': 'ㅉ', 'c': 'ㅊ',
	'z': 'ㅋ', 'x': 'ㅌ', 'v': 'ㅍ', 'g': 'ㅎ',
	'k': 'ㅏ', 'o': 'ㅐ', 'i': 'ㅑ', 'O': 'ㅒ',
	'j': 'ㅓ', 'p': 'ㅔ', 'u': 'ㅕ', 'P': 'ㅖ',
	'h': 'ㅗ', 'y': 'ㅛ', 'n': 'ㅜ', 'b': 'ㅠ',
	'm': 'ㅡ', 'l': 'ㅣ',
}

// Convert maps each keystroke to its compatibility jamo. Runes without a
// mapping, such as spaces and punctuation, are kept.
func Convert(keys string) string {
	var b strings.Builder
	b.Grow(len(keys) * 3)
	for _, r := range keys {
		if j, ok := keymap[r]; ok {
			b.WriteRune(j)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InputMethod is the active keyboard mode of the entry line.
type InputMethod int

const (
	English InputMethod = iota
	Korean
)

// Toggle returns the other input method.
func (m InputMethod) Toggle() InputMethod {
	if m == Korean {
		return English
	}
	return Korean
}

// String returns the one-letter indicator shown next to the entry line.
func (m InputMethod) String() string {
	if m == Korean {
		return "K"
	}
	return "E"
}
