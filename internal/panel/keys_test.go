package panel

import "testing"

func TestInsertTab(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		sel       Selection
		wantText  string
		wantCaret int
	}{
		{"caret mid", "ab", Caret(1), "a  b", 3},
		{"caret start", "ab", Caret(0), "  ab", 2},
		{"caret end", "ab", Caret(2), "ab  ", 4},
		{"empty buffer", "", Caret(0), "  ", 2},
		{"replaces selection", "abcd", Selection{Start: 1, End: 3}, "a  d", 3},
		{"reversed selection", "abcd", Selection{Start: 3, End: 1}, "a  d", 3},
		{"caret past end clamps", "ab", Caret(10), "ab  ", 4},
		{"multibyte", "日本", Caret(1), "日  本", 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InsertTab(tc.text, tc.sel)
			if got.Text != tc.wantText || got.Caret != tc.wantCaret {
				t.Errorf("got %q@%d, want %q@%d", got.Text, got.Caret, tc.wantText, tc.wantCaret)
			}
		})
	}
}

func TestInsertNewline(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		sel       Selection
		wantText  string
		wantCaret int
	}{
		{"list continuation", "- item", Caret(6), "- item\n- ", 9},
		{"star marker", "* item", Caret(6), "* item\n* ", 9},
		{"plus marker", "+ item", Caret(6), "+ item\n+ ", 9},
		{"nested marker", "  - sub", Caret(7), "  - sub\n  - ", 12},
		{"marker with extra spaces", "-   wide", Caret(8), "-   wide\n-   ", 13},
		{"plain indent", "    code", Caret(8), "    code\n    ", 13},
		{"no indent", "plain", Caret(5), "plain\n", 6},
		{"dash without space is not a marker", "-x", Caret(2), "-x\n", 3},
		{"second line", "a\n- b", Caret(5), "a\n- b\n- ", 8},
		{"split mid line", "- ab", Caret(3), "- a\n- b", 6},
		{"tab indent", "\tx", Caret(2), "\tx\n\t", 4},
		{"replaces selection", "- abc", Selection{Start: 3, End: 5}, "- a\n- ", 6},
		{"empty buffer", "", Caret(0), "\n", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InsertNewline(tc.text, tc.sel)
			if got.Text != tc.wantText || got.Caret != tc.wantCaret {
				t.Errorf("got %q@%d, want %q@%d", got.Text, got.Caret, tc.wantText, tc.wantCaret)
			}
		})
	}
}

func TestApplyKey_Unhandled(t *testing.T) {
	if _, ok := ApplyKey("abc", Caret(1), Key("Escape")); ok {
		t.Error("Escape should not be handled")
	}
}

func TestLineCount(t *testing.T) {
	cases := map[string]int{
		"":        1,
		"one":     1,
		"a\nb":    2,
		"a\nb\n":  3,
		"\n\n\n":  4,
		"x\r\ny":  2,
	}
	for text, want := range cases {
		if got := LineCount(text); got != want {
			t.Errorf("LineCount(%q) = %d, want %d", text, got, want)
		}
	}
}
