package content

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForKnownLanguages(t *testing.T) {
	for _, lang := range []string{"EN", "ES", "FR", "DE"} {
		s := For(lang)
		assert.Equal(t, lang, s.Lang)
		assert.NotEmpty(t, s.Voice)
		assert.NotEmpty(t, s.Salutations)
		assert.NotEmpty(t, s.Greetings)
		assert.NotEmpty(t, s.Acks)
		assert.NotEmpty(t, s.Errors)
	}
}

func TestForNormalizesSelector(t *testing.T) {
	assert.Equal(t, "ES", For("es").Lang)
	assert.Equal(t, "ES", For(" es ").Lang)
	assert.Equal(t, "ES", For("es-ES").Lang)
	assert.Equal(t, "DE", For("de-DE").Lang)
}

func TestForFallsBackToBase(t *testing.T) {
	assert.Equal(t, BaseLang, For("JP").Lang)
	assert.Equal(t, BaseLang, For("").Lang)
	assert.Equal(t, BaseLang, For("klingon").Lang)
}

func TestLanguages(t *testing.T) {
	langs := Languages()
	require.Len(t, langs, 4)
	assert.ElementsMatch(t, []string{"EN", "ES", "FR", "DE"}, langs)
}

func TestPick(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	list := []string{"a", "b", "c"}
	for i := 0; i < 20; i++ {
		assert.Contains(t, list, Pick(rng, list))
	}
	assert.Equal(t, "", Pick(rng, nil))
	assert.Equal(t, "only", Pick(rng, []string{"only"}))
}
