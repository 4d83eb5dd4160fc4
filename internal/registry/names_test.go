package registry

import "testing"

func TestSplitName(t *testing.T) {
	tests := []struct {
		full   string
		first  string
		middle string
		last   string
	}{
		{"", "", "", ""},
		{"Ada", "Ada", "", ""},
		{"Ada Obi", "Ada", "", "Obi"},
		{"Ada Ngozi Obi", "Ada", "Ngozi", "Obi"},
		{"Ada Ngozi Obi Eze", "Ada", "Ngozi", "Obi Eze"},
		{"  Ada   Obi  ", "Ada", "", "Obi"},
	}
	for _, tc := range tests {
		first, middle, last := splitName(tc.full)
		if first != tc.first || middle != tc.middle || last != tc.last {
			t.Errorf("splitName(%q) = %q, %q, %q; want %q, %q, %q",
				tc.full, first, middle, last, tc.first, tc.middle, tc.last)
		}
	}
}

func TestRemoveDiacritics(t *testing.T) {
	if got := removeDiacritics("Adébáyò"); got != "Adebayo" {
		t.Errorf("expected Adebayo, got %q", got)
	}
	if got := removeDiacritics("plain"); got != "plain" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}
