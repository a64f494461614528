package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "en", DetectLanguage("en-US,en;q=0.9"))
	assert.Equal(t, "en", DetectLanguage("EN-gb"))
	assert.Equal(t, "fr", DetectLanguage("fr-FR,fr;q=0.8"))
	assert.Equal(t, "en", DetectLanguage("de-DE, en;q=0.5"))
	assert.Equal(t, "fr", DetectLanguage(""))
}

func TestTranslations(t *testing.T) {
	assert.Equal(t, "Required", T("en", "required"))
	assert.Equal(t, "Requis", T("fr", "required"))
	assert.Equal(t, "Montant invalide", T("fr", "invalid_amount"))
	// unknown code falls back to the code
	assert.Equal(t, "__nope__", T("en", "__nope__"))
	// unknown language falls back to French
	assert.Equal(t, "Requis", T("es", "required"))
}
