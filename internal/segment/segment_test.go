package segment

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

func TestNew_SupportedLanguages(t *testing.T) {
	for _, lang := range []string{"spanish", "English", " SPANISH "} {
		t.Run(lang, func(t *testing.T) {
			p, err := New(lang)
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(lang)), p.Language())
		})
	}
}

func TestNew_UnsupportedLanguage(t *testing.T) {
	_, err := New("klingon")

	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeInvalidInput))
}

func TestPunkt_SpanishSentences(t *testing.T) {
	// Given: a Spanish paragraph with three sentences
	p, err := New(Spanish)
	require.NoError(t, err)
	text := "El semestre comienza en marzo. Las inscripciones cierran antes. ¿Hay excepciones? Sí, para alumnos de intercambio."

	// When: segmenting
	got := p.Segment(text)

	// Then: sentence boundaries are found and text is preserved
	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, "El semestre comienza en marzo.", got[0])
	assert.Equal(t, "Las inscripciones cierran antes.", got[1])
	assert.Equal(t, text, strings.Join(got, " "))
}

func TestPunkt_EnglishAbbreviations(t *testing.T) {
	p, err := New(English)
	require.NoError(t, err)

	got := p.Segment("Mr. Smith went to Washington. He left early.")

	require.Len(t, got, 2)
	assert.Equal(t, "He left early.", got[1])
}

func TestPunkt_EmptyInput(t *testing.T) {
	p, err := New(Spanish)
	require.NoError(t, err)

	assert.Empty(t, p.Segment(""))
	assert.Empty(t, p.Segment("   \n\t "))
}

func TestPunkt_NoTerminalPunctuation(t *testing.T) {
	p, err := New(Spanish)
	require.NoError(t, err)

	got := p.Segment("  texto sin punto final  ")

	assert.Equal(t, []string{"texto sin punto final"}, got)
}

func TestPunkt_ConcurrentUse(t *testing.T) {
	p, err := New(Spanish)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				assert.Len(t, p.Segment("Primera oración. Segunda oración."), 2)
			}
		}()
	}
	wg.Wait()
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, []string{"english", "spanish"}, Languages())
}
