package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestRepeatedWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang language.Tag
		want []int // offsets of the findings
	}{
		{"simple", "This is the the test.", language.AmericanEnglish, []int{12}},
		{"case", "The the cat.", language.AmericanEnglish, []int{4}},
		{"across lines", "a cat\ncat b", language.AmericanEnglish, []int{6}},
		{"punctuation breaks", "It was the. The end.", language.AmericanEnglish, nil},
		{"comma breaks", "so, so what", language.AmericanEnglish, nil},
		{"allowed pair", "I knew that that was wrong.", language.AmericanEnglish, nil},
		{"allowed per language", "die die Katze", language.German, nil},
		{"not allowed elsewhere", "die die cat", language.AmericanEnglish, []int{4}},
		{"numbers", "page 12 12 again", language.AmericanEnglish, []int{8}},
		{"none", "Nothing to see here.", language.AmericanEnglish, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, f := range repeatedWords(tt.text, tt.lang) {
				assert.Equal(t, "repeated_word", f.Code)
				assert.Equal(t, SeverityWarning, f.Severity)
				got = append(got, f.Offset)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepeatedWordsRange(t *testing.T) {
	findings := repeatedWords("This is the the test.", language.AmericanEnglish)
	require.Len(t, findings, 1)
	assert.Equal(t, 12, findings[0].Offset)
	assert.Equal(t, 3, findings[0].Length)
	assert.Contains(t, findings[0].Message, `"the"`)
}

func TestLongSentences(t *testing.T) {
	s := "One two three four five. Short one."
	findings := longSentences(s, 3)
	require.Len(t, findings, 1)
	assert.Equal(t, 0, findings[0].Offset)
	assert.Equal(t, len("One two three four five."), findings[0].Length)
	assert.Equal(t, "long_sentence", findings[0].Code)
	assert.Equal(t, SeverityInformation, findings[0].Severity)

	findings = longSentences("Short one. One two three four five.", 3)
	require.Len(t, findings, 1)
	assert.Equal(t, len("Short one. "), findings[0].Offset)

	assert.Empty(t, longSentences(s, 5))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 3, countWords("Hello, world 42!"))
	assert.Equal(t, 0, countWords(" ... "))
	assert.Equal(t, 0, countWords(""))
}
