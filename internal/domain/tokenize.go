package domain

import "strings"

// Tokenize splits CSV text into rows of fields in a single pass.
//
// Quoted fields keep embedded commas and line breaks, with "" resolving to ".
// Unquoted fields are trimmed. Any run of \r and \n ends the current row, so
// blank lines never produce rows of their own. An unterminated quote consumes
// the rest of the input. Tokenize never fails.
func Tokenize(content string) [][]string {
	t := &tokenizer{s: content}
	var rows [][]string
	for t.pos < len(t.s) {
		if row := t.row(); len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

type tokenizer struct {
	s   string
	pos int
}

func (t *tokenizer) row() []string {
	var fields []string
	for t.pos < len(t.s) {
		fields = append(fields, t.field())
		if t.pos >= len(t.s) {
			break
		}

		switch t.s[t.pos] {
		case ',':
			t.pos++
			continue
		case '\n', '\r':
			t.skipLineBreaks()
			return fields
		}
		// Anything else (text after a closing quote) starts another field.
	}
	return fields
}

func (t *tokenizer) field() string {
	t.skipBlanks()
	if t.pos >= len(t.s) {
		return ""
	}
	if t.s[t.pos] == '"' {
		return t.quoted()
	}
	return t.unquoted()
}

func (t *tokenizer) quoted() string {
	t.pos++ // opening quote
	var b strings.Builder
	for t.pos < len(t.s) {
		c := t.s[t.pos]
		t.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if t.pos < len(t.s) && t.s[t.pos] == '"' {
			b.WriteByte('"')
			t.pos++
			continue
		}
		break
	}
	return b.String()
}

func (t *tokenizer) unquoted() string {
	start := t.pos
	for t.pos < len(t.s) {
		c := t.s[t.pos]
		if c == ',' || c == '\n' || c == '\r' {
			break
		}
		t.pos++
	}
	return strings.TrimSpace(t.s[start:t.pos])
}

func (t *tokenizer) skipBlanks() {
	for t.pos < len(t.s) && (t.s[t.pos] == ' ' || t.s[t.pos] == '\t') {
		t.pos++
	}
}

func (t *tokenizer) skipLineBreaks() {
	for t.pos < len(t.s) && (t.s[t.pos] == '\n' || t.s[t.pos] == '\r') {
		t.pos++
	}
}
