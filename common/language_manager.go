// common/language_manager.go

package common

import (
	"os"
	"strings"

	"RekordPdbPatcher/locales"
)

// LanguageItem is one selectable UI language
type LanguageItem struct {
	Code string
	Name string
}

// DetectAndSetLanguage loads translations in this order: RPP_LANG, the configured
// language, the system language, English. The chosen language is saved back to
// the configuration when it did not come from there. configMgr may be nil.
func DetectAndSetLanguage(configMgr *ConfigManager, logger *Logger) string {
	supported := locales.GetAvailableLanguages()

	var globalConfig GlobalConfig
	if configMgr != nil {
		globalConfig = configMgr.GetGlobalConfig()
	}

	candidates := []struct {
		source string
		lang   string
	}{
		{"environment", os.Getenv(EnvLanguage)},
		{"configuration", globalConfig.Language},
		{"system", getSystemLanguage()},
		{"fallback", DefaultLanguage},
	}

	for _, c := range candidates {
		lang := matchLanguage(c.lang, supported)
		if lang == "" {
			continue
		}
		if err := locales.LoadTranslations(lang); err != nil {
			logger.Error("Failed to load translations for %s: %v", lang, err)
			continue
		}
		logger.Info("Using %s language: %s", c.source, lang)
		if configMgr != nil && c.source != "configuration" && c.source != "environment" && globalConfig.Language != lang {
			globalConfig.Language = lang
			if err := configMgr.SaveGlobalConfig(globalConfig); err != nil {
				logger.Error("Failed to save language config: %v", err)
			}
		}
		return lang
	}
	return DefaultLanguage
}

// matchLanguage reduces a locale such as "cs_CZ.UTF-8" to a supported code
func matchLanguage(locale string, supported []string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if len(locale) < 2 {
		return ""
	}
	code := locale[:2]
	for _, lang := range supported {
		if strings.EqualFold(code, lang) {
			return lang
		}
	}
	return ""
}

// GetAvailableLanguages returns the embedded languages with their display names
func GetAvailableLanguages() []LanguageItem {
	langs := locales.GetAvailableLanguages()
	items := make([]LanguageItem, 0, len(langs))

	for _, code := range langs {
		name := locales.Translate("settings.lang." + code)
		if strings.HasPrefix(name, "settings.lang.") {
			name = code
		}
		items = append(items, LanguageItem{Code: code, Name: name})
	}
	return items
}
