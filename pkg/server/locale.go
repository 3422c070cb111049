package server

//go:generate xgotext -no-locations -default tavla -in . -out locales

import (
	"embed"
	"fmt"
	"strings"

	"codeberg.org/tslocum/gotext"
	"golang.org/x/text/language"
)

//go:embed locales
var assetFS embed.FS

var englishIdentifier = []byte("en")

const defaultLanguage = "tavla-en"

func init() {
	gotext.SetDomain(defaultLanguage)
}

func (s *server) loadLocales() error {
	entries, err := assetFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("failed to list files in locales directory: %w", err)
	}

	var availableTags = []language.Tag{
		language.MustParse("en_US"),
	}
	var availableNames = [][]byte{
		[]byte("en"),
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tag, err := language.Parse(entry.Name())
		if err != nil {
			return fmt.Errorf("invalid locale %s: %w", entry.Name(), err)
		}
		availableTags = append(availableTags, tag)
		availableNames = append(availableNames, []byte(entry.Name()))

		b, err := assetFS.ReadFile(fmt.Sprintf("locales/%s/%s.po", entry.Name(), entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read locale %s: %w", entry.Name(), err)
		}

		po := gotext.NewPo()
		po.Parse(b)
		gotext.GetStorage().AddTranslator(fmt.Sprintf("tavla-%s", entry.Name()), po)
	}
	s.languageTags = availableTags
	s.languageNames = availableNames
	return nil
}

// matchLanguage returns the name of the available locale closest to the
// requested language.
func (s *server) matchLanguage(identifier []byte) []byte {
	if len(identifier) == 0 {
		return englishIdentifier
	}

	tag, err := language.Parse(string(identifier))
	if err != nil {
		return englishIdentifier
	}
	var preferred = []language.Tag{tag}

	_, index, confidence := language.NewMatcher(s.languageTags).Match(preferred...)
	if index <= 0 || confidence == language.No || strings.HasPrefix(string(s.languageNames[index]), "en") {
		return englishIdentifier
	}
	return s.languageNames[index]
}
