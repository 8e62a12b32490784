// locales/locales.go

// Package locales holds the embedded UI translations
package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// DefaultLanguage is loaded at startup so Translate works before language detection
const DefaultLanguage = "en"

//go:embed */translations.json
var translationsFS embed.FS

var (
	mu           sync.RWMutex
	translations map[string]string
	current      string
)

func init() {
	// the embedded English file is part of the binary
	if err := LoadTranslations(DefaultLanguage); err != nil {
		panic(err)
	}
}

// LoadTranslations replaces the active translations with those of lang
func LoadTranslations(lang string) error {
	loaded, err := readTranslations(lang)
	if err != nil {
		return err
	}

	mu.Lock()
	translations = loaded
	current = lang
	mu.Unlock()
	return nil
}

func readTranslations(lang string) (map[string]string, error) {
	data, err := translationsFS.ReadFile(lang + "/translations.json")
	if err != nil {
		return nil, fmt.Errorf("failed to load translation file for %q: %w", lang, err)
	}

	var loaded map[string]string
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse translation file for %q: %w", lang, err)
	}
	return loaded, nil
}

// Translate returns the translation of key, or key itself when it is missing
func Translate(key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if translation, ok := translations[key]; ok {
		return translation
	}
	return key
}

// Current returns the code of the loaded language
func Current() string {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// GetAvailableLanguages returns the embedded language codes, sorted
func GetAvailableLanguages() []string {
	entries, err := translationsFS.ReadDir(".")
	if err != nil {
		return []string{DefaultLanguage}
	}

	var langs []string
	for _, entry := range entries {
		if entry.IsDir() {
			langs = append(langs, entry.Name())
		}
	}
	sort.Strings(langs)
	return langs
}
