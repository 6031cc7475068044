package hangul

import (
	"context"
	"strings"
)

const syllableBase = 0xAC00

var (
	initials = []rune("ㄱㄲㄴㄷㄸㄹㅁㅂㅃㅅㅆㅇㅈㅉㅊㅋㅌㅍㅎ")
	medials  = []rune("ㅏㅐㅑㅒㅓㅔㅕㅖㅗㅘㅙㅚㅛㅜㅝㅞㅟㅠㅡㅢㅣ")
	// finals[0] is the empty final.
	finals = append([]rune{0}, []rune("ㄱㄲㄳㄴㄵㄶㄷㄹㄺㄻㄼㄽㄾㄿㅀㅁㅂㅄㅅㅆㅇㅈㅊㅋㅌㅍㅎ")...)

	initialIndex = indexOf(initials)
	medialIndex  = indexOf(medials)
	finalIndex   = indexOf(finals)

	compoundVowels = map[[2]rune]rune{
		{'ㅗ', 'ㅏ'}: 'ㅘ', {'ㅗ', 'ㅐ'}: 'ㅙ', {'ㅗ', 'ㅣ'}: 'ㅚ',
		{'ㅜ', 'ㅓ'}: 'ㅝ', {'ㅜ', 'ㅔ'}: 'ㅞ', {'ㅜ', 'ㅣ'}: 'ㅟ',
		{'ㅡ', 'ㅣ'}: 'ㅢ',
	}

	compoundFinals = map[[2]rune]rune{
		{'ㄱ', 'ㅅ'}: 'ㄳ', {'ㄴ', 'ㅈ'}: 'ㄵ', {'ㄴ', 'ㅎ'}: 'ㄶ',
		{'ㄹ', 'ㄱ'}: 'ㄺ', {'ㄹ', 'ㅁ'}: 'ㄻ', {'ㄹ', 'ㅂ'}: 'ㄼ',
		{'ㄹ', 'ㅅ'}: 'ㄽ', {'ㄹ', 'ㅌ'}: 'ㄾ', {'ㄹ', 'ㅍ'}: 'ㄿ',
		{'ㄹ', 'ㅎ'}: 'ㅀ', {'ㅂ', 'ㅅ'}: 'ㅄ',
	}

	splitFinals = invert(compoundFinals)
)

func indexOf(rs []rune) map[rune]int {
	m := make(map[rune]int, len(rs))
	for i, r := range rs {
		if r != 0 {
			m[r] = i
		}
	}
	return m
}

func invert(m map[[2]rune]rune) map[rune][2]rune {
	out := make(map[rune][2]rune, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func isConsonant(r rune) bool {
	_, initial := initialIndex[r]
	_, final := finalIndex[r]
	return initial || final
}

func isVowel(r rune) bool {
	_, ok := medialIndex[r]
	return ok
}

// Assembler composes compatibility jamo into precomposed syllables. It is
// the built-in Shaper and never fails.
type Assembler struct{}

// Shape implements Shaper.
func (Assembler) Shape(_ context.Context, jamo string) (string, error) {
	return Assemble(jamo), nil
}

// Assemble composes jamo into syllables. A final consonant moves to the
// next syllable when a vowel follows it, and a compound final is split so
// that only its second consonant moves. Anything that is not jamo passes
// through unchanged.
func Assemble(jamo string) string {
	var s syllable
	var b strings.Builder
	b.Grow(len(jamo))

	for _, r := range jamo {
		switch {
		case isConsonant(r):
			s.consonant(&b, r)
		case isVowel(r):
			s.vowel(&b, r)
		default:
			s.flush(&b)
			b.WriteRune(r)
		}
	}
	s.flush(&b)
	return b.String()
}

// syllable is the block being built. Zero fields are absent.
type syllable struct {
	initial rune
	medial  rune
	final   rune
}

func (s *syllable) consonant(b *strings.Builder, c rune) {
	switch {
	case s.medial == 0 && s.initial == 0:
		s.start(b, c)
	case s.medial == 0:
		s.flush(b)
		s.start(b, c)
	case s.final == 0:
		if _, ok := finalIndex[c]; ok && s.initial != 0 {
			s.final = c
			return
		}
		s.flush(b)
		s.start(b, c)
	default:
		if compound, ok := compoundFinals[[2]rune{s.final, c}]; ok {
			s.final = compound
			return
		}
		s.flush(b)
		s.start(b, c)
	}
}

// start opens a new block with c. Compound finals typed on their own
// cannot begin a syllable and are written as is.
func (s *syllable) start(b *strings.Builder, c rune) {
	if _, ok := initialIndex[c]; ok {
		s.initial = c
		return
	}
	b.WriteRune(c)
}

func (s *syllable) vowel(b *strings.Builder, v rune) {
	switch {
	case s.medial == 0:
		s.medial = v
	case s.final == 0:
		if compound, ok := compoundVowels[[2]rune{s.medial, v}]; ok {
			s.medial = compound
			return
		}
		s.flush(b)
		s.medial = v
	default:
		moved := s.final
		if parts, ok := splitFinals[s.final]; ok {
			s.final = parts[0]
			moved = parts[1]
		} else {
			s.final = 0
		}
		s.flush(b)
		s.initial = moved
		s.medial = v
	}
}

func (s *syllable) flush(b *strings.Builder) {
	switch {
	case s.initial != 0 && s.medial != 0:
		idx := (initialIndex[s.initial]*len(medials)+medialIndex[s.medial])*len(finals) + finalIndex[s.final]
		b.WriteRune(rune(syllableBase + idx))
	case s.initial != 0:
		b.WriteRune(s.initial)
	case s.medial != 0:
		b.WriteRune(s.medial)
	}
	*s = syllable{}
}
