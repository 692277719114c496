package checker

import (
	"golang.org/x/text/language"
)

// DefaultLanguage is used for every code that matches no supported
// language, including malformed ones.
var DefaultLanguage = language.AmericanEnglish

var supportedLanguages = []language.Tag{
	DefaultLanguage,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Spanish,
	language.Italian,
	language.Dutch,
	language.Portuguese,
	language.Polish,
	language.Russian,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// LanguageFor maps a settings language code such as "en" or "de-DE" to a
// supported language. It never fails.
func LanguageFor(code string) language.Tag {
	tag, err := language.Parse(code)
	if err != nil {
		return DefaultLanguage
	}
	_, i, conf := languageMatcher.Match(tag)
	if conf == language.No {
		return DefaultLanguage
	}
	return supportedLanguages[i]
}
