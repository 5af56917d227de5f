package panel

import (
	"regexp"
	"strings"
)

// Key names a key press the editor intercepts.
type Key string

const (
	KeyTab   Key = "Tab"
	KeyEnter Key = "Enter"
)

// TabIndent is inserted in place of a tab character.
const TabIndent = "  "

var (
	listMarkerRe = regexp.MustCompile(`^\s*[-*+]\s+`)
	indentRe     = regexp.MustCompile(`^\s*`)
)

// Selection is a caret range in rune offsets. Start == End is a bare caret.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Caret returns a collapsed selection at pos.
func Caret(pos int) Selection {
	return Selection{Start: pos, End: pos}
}

// normalize orders and clamps s into [0, n].
func (s Selection) normalize(n int) Selection {
	if s.Start > s.End {
		s.Start, s.End = s.End, s.Start
	}
	s.Start = min(max(s.Start, 0), n)
	s.End = min(max(s.End, 0), n)
	return s
}

// Edit is a buffer after a key press, with the caret to place.
type Edit struct {
	Text  string `json:"text"`
	Caret int    `json:"caret"`
}

// ApplyKey computes the edit for key. It reports false for keys the editor
// does not intercept.
func ApplyKey(text string, sel Selection, key Key) (Edit, bool) {
	switch key {
	case KeyTab:
		return InsertTab(text, sel), true
	case KeyEnter:
		return InsertNewline(text, sel), true
	default:
		return Edit{}, false
	}
}

// InsertTab replaces the selection with TabIndent.
func InsertTab(text string, sel Selection) Edit {
	return replace(text, sel, TabIndent)
}

// InsertNewline replaces the selection with a newline followed by the
// current line's list marker, or its indentation when it has no marker.
func InsertNewline(text string, sel Selection) Edit {
	runes := []rune(text)
	sel = sel.normalize(len(runes))

	before := string(runes[:sel.Start])
	line := before[strings.LastIndexByte(before, '\n')+1:]
	return replace(text, sel, "\n"+continuation(line))
}

// continuation returns the prefix to repeat on the next line.
func continuation(line string) string {
	if m := listMarkerRe.FindString(line); m != "" {
		return m
	}
	return indentRe.FindString(line)
}

func replace(text string, sel Selection, insert string) Edit {
	runes := []rune(text)
	sel = sel.normalize(len(runes))

	var b strings.Builder
	b.Grow(len(text) + len(insert))
	b.WriteString(string(runes[:sel.Start]))
	b.WriteString(insert)
	b.WriteString(string(runes[sel.End:]))
	return Edit{
		Text:  b.String(),
		Caret: sel.Start + len([]rune(insert)),
	}
}

// LineCount returns the number of newline-separated lines; an empty buffer
// has one line.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}
