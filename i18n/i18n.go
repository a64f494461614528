// Package i18n translates error and violation codes for API messages.
// French is the default language.
package i18n

import "strings"

const defaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"required":             "Requis",
		"too_long":             "Trop long",
		"invalid_email":        "Adresse email invalide",
		"invalid_choice":       "Valeur non autorisée",
		"invalid_amount":       "Montant invalide",
		"must_not_be_negative": "Ne peut pas être négatif",
		"out_of_range":         "Hors limites",
		"validation_failed":    "Données invalides",
		"not_found":            "Introuvable",
		"invalid_credentials":  "Identifiants invalides",
	},
	"en": {
		"required":             "Required",
		"too_long":             "Too long",
		"invalid_email":        "Invalid email address",
		"invalid_choice":       "Value not allowed",
		"invalid_amount":       "Invalid amount",
		"must_not_be_negative": "Must not be negative",
		"out_of_range":         "Out of range",
		"validation_failed":    "Invalid data",
		"not_found":            "Not found",
		"invalid_credentials":  "Invalid credentials",
	},
}

// DetectLanguage picks the first supported language of an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if _, ok := messages[base]; ok {
			return base
		}
	}
	return defaultLang
}

// T translates code, falling back to French and then to the code itself.
func T(lang, code string) string {
	if msg, ok := messages[lang][code]; ok {
		return msg
	}
	if msg, ok := messages[defaultLang][code]; ok {
		return msg
	}
	return code
}
