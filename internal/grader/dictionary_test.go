package grader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDictionaryGrader(t *testing.T) {
	words := NewWordList()
	words.Add("en", "Animal", "Cat")
	words.Add("en", "Color", "Cyan")
	words.Add("en", "Animal", "Dog")
	words.Add("es", "Food", "Ñoquis")
	words.Add("es", "Food", "Nuez")

	g := NewDictionaryGrader(words)

	tests := []struct {
		name     string
		letter   string
		language string
		category string
		word     string
		valid    bool
	}{
		{name: "Listed word", letter: "C", language: "en", category: "Animal", word: "cat", valid: true},
		{name: "Case and padding", letter: "c", language: "en", category: "Color", word: "  CYAN ", valid: true},
		{name: "Wrong letter", letter: "C", language: "en", category: "Animal", word: "Dog", valid: false},
		{name: "Wrong category", letter: "C", language: "en", category: "Color", word: "Cat", valid: false},
		{name: "Unknown word", letter: "C", language: "en", category: "Animal", word: "Cobra", valid: false},
		{name: "Blank", letter: "C", language: "en", category: "Animal", word: "", valid: false},
		{name: "Single rune", letter: "C", language: "en", category: "Animal", word: "C", valid: false},
		{name: "Other language", letter: "C", language: "es", category: "Animal", word: "Cat", valid: false},
		{name: "Enye letter", letter: "Ñ", language: "es", category: "Food", word: "ÑOQUIS", valid: true},
		{name: "N word in enye round", letter: "Ñ", language: "es", category: "Food", word: "Nuez", valid: false},
		{name: "Enye word in N round", letter: "N", language: "es", category: "Food", word: "Ñoquis", valid: false},
		{name: "Plain N", letter: "n", language: "es", category: "Food", word: "nuez", valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(tt.letter, tt.language, []string{tt.category}, map[string]string{tt.category: tt.word})
			res, err := g.Evaluate(context.Background(), req)
			require.NoError(t, err)

			grade := res.Player[tt.category]
			assert.Equal(t, tt.valid, grade.IsValid)
			if tt.valid {
				assert.Equal(t, ValidWordScore, grade.Score)
			} else {
				assert.Zero(t, grade.Score)
			}
			assert.Nil(t, res.Opponent)
		})
	}
}

func TestDictionaryGraderRequiresLetter(t *testing.T) {
	g := NewDictionaryGrader(NewWordList())
	_, err := g.Evaluate(context.Background(), NewRequest("", "en", []string{"Animal"}, nil))
	assert.Error(t, err)
}

func TestLoadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("en")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("en", "A1", &[]interface{}{"Animal", "Color", "Unknown"}))
	require.NoError(t, f.SetSheetRow("en", "A2", &[]interface{}{"Cat", "Cyan", "Cheese"}))
	require.NoError(t, f.SetSheetRow("en", "A3", &[]interface{}{"Cow", ""}))
	_, err = f.NewSheet("zz")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("zz", "A1", &[]interface{}{"Animal"}))
	require.NoError(t, f.SetSheetRow("zz", "A2", &[]interface{}{"Crab"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	list, err := LoadWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Len())

	known, err := list.KnownWords(context.Background(), "en", []string{"cat", "cow", "cyan", "cheese", "crab"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Animal"}, known["cat"])
	assert.Equal(t, []string{"Animal"}, known["cow"])
	assert.Equal(t, []string{"Color"}, known["cyan"])
	assert.NotContains(t, known, "cheese")
	assert.NotContains(t, known, "crab")
}
