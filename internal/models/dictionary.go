package models

import "time"

// DictionaryWord is one accepted answer; Word is stored folded.
type DictionaryWord struct {
	ID        uint      `gorm:"primaryKey"`
	Language  string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_dictionary_entry"`
	Category  string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_dictionary_entry"`
	Word      string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_dictionary_entry"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (DictionaryWord) TableName() string {
	return "dictionary_words"
}
