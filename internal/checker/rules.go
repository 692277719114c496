package checker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/language"
)

// Finding is a rule match in a piece of cleaned text, in bytes relative to
// the start of that text.
type Finding struct {
	Offset   int      `json:"offset"`
	Length   int      `json:"length"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Word pairs that are correct when doubled, by base language.
var allowedRepeats = map[string]map[string]bool{
	"en": {"that": true, "had": true, "is": true},
	"de": {"die": true, "das": true, "der": true, "sie": true},
	"fr": {"nous": true, "vous": true},
	"nl": {"die": true, "dat": true},
}

func isWord(token string) bool {
	return strings.IndexFunc(token, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r)
	}) >= 0
}

func isSpace(token string) bool {
	return strings.TrimSpace(token) == ""
}

// repeatedWords finds a word following the same word, ignoring case, with
// only whitespace between them.
func repeatedWords(s string, lang language.Tag) []Finding {
	base, _ := lang.Base()
	allowed := allowedRepeats[base.String()]

	var out []Finding
	prev := ""
	offset := 0
	state := -1
	for rest := s; rest != ""; {
		var token string
		token, rest, state = uniseg.FirstWordInString(rest, state)
		switch {
		case isWord(token):
			w := strings.ToLower(token)
			if w == prev && !allowed[w] {
				out = append(out, Finding{
					Offset:   offset,
					Length:   len(token),
					Code:     "repeated_word",
					Message:  fmt.Sprintf("Possible typo: the word %q is repeated.", token),
					Severity: SeverityWarning,
				})
			}
			prev = w
		case !isSpace(token):
			prev = ""
		}
		offset += len(token)
	}
	return out
}

// longSentences finds sentences of more than limit words.
func longSentences(s string, limit int) []Finding {
	var out []Finding
	offset := 0
	state := -1
	for rest := s; rest != ""; {
		var sentence string
		sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
		if n := countWords(sentence); n > limit {
			lead := len(sentence) - len(strings.TrimLeftFunc(sentence, unicode.IsSpace))
			trimmed := strings.TrimSpace(sentence)
			out = append(out, Finding{
				Offset:   offset + lead,
				Length:   len(trimmed),
				Code:     "long_sentence",
				Message:  fmt.Sprintf("This sentence has %d words. Consider splitting it; the limit is %d.", n, limit),
				Severity: SeverityInformation,
			})
		}
		offset += len(sentence)
	}
	return out
}

func countWords(s string) int {
	n := 0
	state := -1
	for s != "" {
		var token string
		token, s, state = uniseg.FirstWordInString(s, state)
		if isWord(token) {
			n++
		}
	}
	return n
}
