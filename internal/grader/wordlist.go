package grader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mroshb/word_game/internal/catalog"
	"github.com/mroshb/word_game/pkg/utils"
	"github.com/xuri/excelize/v2"
)

// WordList is an in-memory WordSource.
type WordList struct {
	mu sync.RWMutex
	// language -> folded word -> categories
	entries map[string]map[string][]string
}

func NewWordList() *WordList {
	return &WordList{entries: make(map[string]map[string][]string)}
}

// Add registers word for category in language. Duplicates are ignored.
func (w *WordList) Add(language, category, word string) {
	folded := utils.FoldWord(word)
	if folded == "" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	byWord := w.entries[language]
	if byWord == nil {
		byWord = make(map[string][]string)
		w.entries[language] = byWord
	}
	if !listed(byWord[folded], category) {
		byWord[folded] = append(byWord[folded], category)
	}
}

func (w *WordList) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n := 0
	for _, byWord := range w.entries {
		for _, categories := range byWord {
			n += len(categories)
		}
	}
	return n
}

func (w *WordList) KnownWords(ctx context.Context, language string, words []string) (map[string][]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[string][]string, len(words))
	byWord := w.entries[language]
	for _, word := range words {
		if categories, ok := byWord[word]; ok {
			out[word] = append([]string(nil), categories...)
		}
	}
	return out, nil
}

// Entry is one row of a word-list workbook.
type Entry struct {
	Language string
	Category string
	Word     string
}

// ReadWorkbook reads a word-list workbook: one sheet per language code, a
// header row of category keys, words underneath. Unknown sheets and columns
// are skipped.
func ReadWorkbook(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var entries []Entry
	for _, sheet := range f.GetSheetList() {
		lang, ok := catalog.Lookup(sheet)
		if !ok {
			continue
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		header := make([]string, len(rows[0]))
		for i, cell := range rows[0] {
			key := strings.TrimSpace(cell)
			if lang.HasCategory(key) {
				header[i] = key
			}
		}

		for _, row := range rows[1:] {
			for i, cell := range row {
				if i >= len(header) || header[i] == "" || strings.TrimSpace(cell) == "" {
					continue
				}
				entries = append(entries, Entry{Language: lang.Code, Category: header[i], Word: cell})
			}
		}
	}
	return entries, nil
}

// LoadWorkbook reads a workbook straight into a WordList.
func LoadWorkbook(path string) (*WordList, error) {
	entries, err := ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	list := NewWordList()
	for _, e := range entries {
		list.Add(e.Language, e.Category, e.Word)
	}
	return list, nil
}
