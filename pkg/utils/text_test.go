package utils

import "testing"

func TestFoldWord(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Case", input: "Cat", want: "cat"},
		{name: "Accents", input: "Canción", want: "cancion"},
		{name: "Enye kept", input: "Ñandú", want: "ñandu"},
		{name: "Decomposed enye", input: "Pin\u0303a", want: "piña"},
		{name: "Tilde on other letters", input: "São", want: "sao"},
		{name: "Spaces", input: "  New   York ", want: "new york"},
		{name: "Persian yeh", input: "علي", want: "علی"},
		{name: "Empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FoldWord(tt.input); got != tt.want {
				t.Errorf("FoldWord(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFirstLetter(t *testing.T) {
	if got := FirstLetter("Élan"); got != "e" {
		t.Errorf("FirstLetter() = %q, want %q", got, "e")
	}
	if got := FirstLetter("Ñu"); got != "ñ" {
		t.Errorf("FirstLetter() = %q, want %q", got, "ñ")
	}
	if got := FirstLetter(""); got != "" {
		t.Errorf("FirstLetter() = %q, want empty", got)
	}
}

func TestPickOne(t *testing.T) {
	items := []string{"A", "B", "C"}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[PickOne(items)] = true
	}
	for _, item := range items {
		if !seen[item] {
			t.Errorf("PickOne never returned %q in 200 draws", item)
		}
	}
	if got := PickOne(nil); got != "" {
		t.Errorf("PickOne(nil) = %q, want empty", got)
	}
}
