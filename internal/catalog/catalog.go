// Package catalog holds the static per-language tables the game is played with:
// the spinner alphabet and the category list. The tables are built once at init
// and never mutated.
package catalog

import (
	"sort"
	"strings"

	"github.com/mroshb/word_game/pkg/utils"
)

type Category struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Default bool   `json:"default"`
}

type Language struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Alphabet   []string   `json:"alphabet"`
	Categories []Category `json:"categories"`
}

// Category keys are shared across languages so rooms, results and missions
// never depend on translated labels.
const (
	CategoryName       = "Name"
	CategoryPlace      = "Place"
	CategoryAnimal     = "Animal"
	CategoryFood       = "Food"
	CategoryColor      = "Color"
	CategoryThing      = "Thing"
	CategoryProfession = "Profession"
	CategoryCountry    = "Country"
)

var languages = map[string]Language{
	"en": {
		Code:     "en",
		Name:     "English",
		Alphabet: strings.Split("ABCDEFGHIJKLMNOPQRSTUVWXYZ", ""),
		Categories: []Category{
			{Key: CategoryName, Label: "Name", Default: true},
			{Key: CategoryPlace, Label: "Place", Default: true},
			{Key: CategoryAnimal, Label: "Animal", Default: true},
			{Key: CategoryFood, Label: "Food", Default: true},
			{Key: CategoryColor, Label: "Color", Default: true},
			{Key: CategoryThing, Label: "Thing", Default: true},
			{Key: CategoryProfession, Label: "Profession"},
			{Key: CategoryCountry, Label: "Country"},
		},
	},
	"es": {
		Code:     "es",
		Name:     "Español",
		Alphabet: strings.Split("ABCDEFGHIJLMNÑOPQRSTUVYZ", ""),
		Categories: []Category{
			{Key: CategoryName, Label: "Nombre", Default: true},
			{Key: CategoryPlace, Label: "Lugar", Default: true},
			{Key: CategoryAnimal, Label: "Animal", Default: true},
			{Key: CategoryFood, Label: "Comida", Default: true},
			{Key: CategoryColor, Label: "Color", Default: true},
			{Key: CategoryThing, Label: "Cosa", Default: true},
			{Key: CategoryProfession, Label: "Profesión"},
			{Key: CategoryCountry, Label: "País"},
		},
	},
	"fa": {
		Code: "fa",
		Name: "فارسی",
		Alphabet: []string{
			"ا", "ب", "پ", "ت", "ج", "چ", "ح", "خ", "د", "ر", "ز", "س", "ش",
			"ص", "ط", "ع", "غ", "ف", "ق", "ک", "گ", "ل", "م", "ن", "و", "ه", "ی",
		},
		Categories: []Category{
			{Key: CategoryName, Label: "اسم", Default: true},
			{Key: CategoryPlace, Label: "شهر", Default: true},
			{Key: CategoryAnimal, Label: "حیوان", Default: true},
			{Key: CategoryFood, Label: "غذا", Default: true},
			{Key: CategoryColor, Label: "رنگ", Default: true},
			{Key: CategoryThing, Label: "اشیا", Default: true},
			{Key: CategoryProfession, Label: "شغل"},
			{Key: CategoryCountry, Label: "کشور"},
		},
	},
}

// Lookup returns the table for a language code.
func Lookup(code string) (Language, bool) {
	lang, ok := languages[strings.ToLower(strings.TrimSpace(code))]
	return lang, ok
}

// Supported lists the known language codes in stable order.
func Supported() []string {
	codes := make([]string, 0, len(languages))
	for code := range languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NormalizeLetter maps user input onto the alphabet entry it denotes, or "" when
// the input is not a letter of this language.
func (l Language) NormalizeLetter(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(utils.NormalizePersianText(s))
	for _, letter := range l.Alphabet {
		if letter == upper {
			return letter
		}
	}
	return ""
}

func (l Language) HasLetter(input string) bool {
	return l.NormalizeLetter(input) != ""
}

func (l Language) HasCategory(key string) bool {
	for _, c := range l.Categories {
		if c.Key == key {
			return true
		}
	}
	return false
}

func (l Language) DefaultCategoryKeys() []string {
	keys := make([]string, 0, len(l.Categories))
	for _, c := range l.Categories {
		if c.Default {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// RandomLetter draws one letter uniformly from the alphabet.
func (l Language) RandomLetter() string {
	return utils.PickOne(l.Alphabet)
}
