package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizePersianNumbers converts Persian and Arabic numerals to English numerals
func NormalizePersianNumbers(input string) string {
	replacer := strings.NewReplacer(
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4", "۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4", "٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	)
	return replacer.Replace(input)
}

// NormalizePersianText handles Arabic/Farsi character variants
func NormalizePersianText(input string) string {
	replacer := strings.NewReplacer(
		"ي", "ی", // Arabic Yeh to Farsi Yeh
		"ك", "ک", // Arabic Kaf to Farsi Kaf
		"ة", "ه", // Teh Marbuta to Heh
	)
	return strings.TrimSpace(replacer.Replace(input))
}

var folder = cases.Fold()

// FoldWord reduces a word to the form used for dictionary and letter matching:
// Persian variants unified, case folded, marks stripped, inner whitespace
// collapsed. ñ is a letter of its own and keeps its tilde.
func FoldWord(input string) string {
	s := NormalizePersianNumbers(NormalizePersianText(input))
	s = folder.String(norm.NFC.String(s))

	parts := strings.Split(s, "ñ")
	for i, part := range parts {
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if stripped, _, err := transform.String(t, part); err == nil {
			parts[i] = stripped
		}
	}
	s = strings.Join(parts, "ñ")
	return strings.Join(strings.Fields(s), " ")
}

// FirstLetter returns the first rune of the folded word, or "" for an empty word.
func FirstLetter(input string) string {
	folded := FoldWord(input)
	for _, r := range folded {
		return string(r)
	}
	return ""
}
