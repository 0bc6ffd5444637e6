package repositories

import (
	"context"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DictionaryRepository is the postgres word source for the dictionary grader.
type DictionaryRepository struct {
	db *gorm.DB
}

func NewDictionaryRepository(db *gorm.DB) *DictionaryRepository {
	return &DictionaryRepository{db: db}
}

// KnownWords maps each listed folded word to the categories accepting it.
func (r *DictionaryRepository) KnownWords(ctx context.Context, language string, words []string) (map[string][]string, error) {
	out := make(map[string][]string)
	if len(words) == 0 {
		return out, nil
	}

	var rows []models.DictionaryWord
	err := r.db.WithContext(ctx).
		Select("category", "word").
		Where("language = ? AND word IN ?", language, words).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to look up words")
	}

	for _, row := range rows {
		out[row.Word] = append(out[row.Word], row.Category)
	}
	return out, nil
}

// BulkInsert stores words folded and skips ones already present. It returns
// how many rows were new.
func (r *DictionaryRepository) BulkInsert(ctx context.Context, words []models.DictionaryWord, batchSize int) (int64, error) {
	rows := make([]models.DictionaryWord, 0, len(words))
	for _, w := range words {
		folded := utils.FoldWord(w.Word)
		if folded == "" {
			continue
		}
		rows = append(rows, models.DictionaryWord{Language: w.Language, Category: w.Category, Word: folded})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, batchSize)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to import words")
	}
	return result.RowsAffected, nil
}

// Count reports how many words a language has, all languages when language is "".
func (r *DictionaryRepository) Count(ctx context.Context, language string) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.DictionaryWord{})
	if language != "" {
		q = q.Where("language = ?", language)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count words")
	}
	return n, nil
}
