package hangul_test

import (
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/omochice/whisper-chat/internal/hangul"
)

func TestAssemble(t *testing.T) {
	tests := []struct {
		name string
		jamo string
		want string
	}{
		{name: "two syllables", jamo: "ㅎㅏㄴㄱㅡㄹ", want: "한글"},
		{name: "compound final", jamo: "ㄱㅏㅂㅅ", want: "값"},
		{name: "final moves to next syllable", jamo: "ㄷㅏㄹㄱㅏ", want: "달가"},
		{name: "compound vowel alone", jamo: "ㅗㅏ", want: "ㅘ"},
		{name: "compound vowel in syllable", jamo: "ㄱㅗㅏ", want: "과"},
		{name: "lone consonants", jamo: "ㅋㅋㅋ", want: "ㅋㅋㅋ"},
		{name: "double initial", jamo: "ㄲㅏ", want: "까"},
		{name: "double initial is never a final", jamo: "ㅏㄸ", want: "ㅏㄸ"},
		{name: "spaces separate syllables", jamo: "ㅇㅏㄴㄴㅕㅇ ㅎㅏㅅㅔㅇㅛ", want: "안녕 하세요"},
		{name: "latin passes through", jamo: "hi ㅎㅣ!", want: "hi 히!"},
		{name: "empty", jamo: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hangul.Assemble(tt.jamo))
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		keys string
		want string
	}{
		{keys: "gksrmf", want: "ㅎㅏㄴㄱㅡㄹ"},
		{keys: "Rk", want: "ㄲㅏ"},
		{keys: "dkssud, 123", want: "ㅇㅏㄴㄴㅕㅇ, 123"},
		{keys: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.keys, func(t *testing.T) {
			assert.Equal(t, tt.want, hangul.Convert(tt.keys))
		})
	}
}

func TestConvertThenAssemble(t *testing.T) {
	assert.Equal(t, "안녕하세요", hangul.Assemble(hangul.Convert("dkssudgktpdy")))
}

func TestInputMethod(t *testing.T) {
	m := hangul.English
	assert.Equal(t, "E", m.String())

	m = m.Toggle()
	assert.Equal(t, hangul.Korean, m)
	assert.Equal(t, "K", m.String())

	assert.Equal(t, hangul.English, m.Toggle())
}

func TestAssembleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	alphabet := []rune("ㄱㄲㄴㄷㄸㄹㅁㅂㅃㅅㅆㅇㅈㅉㅊㅋㅌㅍㅎㅏㅐㅑㅒㅓㅔㅕㅖㅗㅛㅜㅠㅡㅣ ")
	jamoGen := gen.SliceOf(gen.IntRange(0, len(alphabet)-1)).Map(func(idx []int) string {
		rs := make([]rune, len(idx))
		for i, n := range idx {
			rs[i] = alphabet[n]
		}
		return string(rs)
	})

	properties.Property("never lengthens input", prop.ForAll(
		func(jamo string) bool {
			return utf8.RuneCountInString(hangul.Assemble(jamo)) <= utf8.RuneCountInString(jamo)
		},
		jamoGen,
	))

	properties.Property("ascii passes through", prop.ForAll(
		func(s string) bool {
			return hangul.Assemble(s) == s
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
