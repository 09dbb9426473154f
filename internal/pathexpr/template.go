package pathexpr

import (
	"strings"
)

// Field is a single {name[key].attr} reference inside a template
type Field struct {
	Expr   string   // Text between the braces
	Tokens []string // Name followed by each accessor, in order
}

// segment is either literal text or a field reference
type segment struct {
	literal string
	field   *Field
}

// Template is a parsed format string such as "arn is {Table[TableArn]}".
// Literal braces are written as {{ and }}.
type Template struct {
	raw      string
	segments []segment
}

// Parse parses a format string into a Template
func Parse(s string) (*Template, error) {
	t := &Template{raw: s}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end, err := fieldEnd(s, i)
			if err != nil {
				return nil, err
			}
			field, err := parseField(s, i+1, end)
			if err != nil {
				return nil, err
			}
			flush()
			t.segments = append(t.segments, segment{field: field})
			i = end
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, &SyntaxError{Expression: s, Offset: i, Reason: "single '}' encountered"}
		default:
			lit.WriteByte(ch)
		}
	}
	flush()

	return t, nil
}

// fieldEnd returns the index of the '}' closing the field opened at start.
// A '}' inside [...] belongs to the key.
func fieldEnd(s string, start int) (int, error) {
	inBracket := false
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '[':
			inBracket = true
		case ']':
			inBracket = false
		case '{':
			if !inBracket {
				return 0, &SyntaxError{Expression: s, Offset: j, Reason: "nested '{' in field"}
			}
		case '}':
			if !inBracket {
				return j, nil
			}
		}
	}
	return 0, &SyntaxError{Expression: s, Offset: start, Reason: "unclosed '{'"}
}

// parseField splits name[key][key2].attr into tokens
func parseField(s string, from, to int) (*Field, error) {
	expr := s[from:to]
	if expr == "" {
		return nil, &SyntaxError{Expression: s, Offset: from, Reason: "empty field name"}
	}

	var tokens []string
	nameEnd := strings.IndexAny(expr, "[.")
	if nameEnd == -1 {
		nameEnd = len(expr)
	}
	name := expr[:nameEnd]
	if name == "" {
		return nil, &SyntaxError{Expression: s, Offset: from, Reason: "field must start with a name"}
	}
	if strings.ContainsAny(name, "!:]") {
		return nil, &SyntaxError{Expression: s, Offset: from, Reason: "conversions and format specs are not supported"}
	}
	tokens = append(tokens, name)
	i := nameEnd

	for i < len(expr) {
		switch expr[i] {
		case '[':
			end := strings.IndexByte(expr[i:], ']')
			if end == -1 {
				return nil, &SyntaxError{Expression: s, Offset: from + i, Reason: "missing ']'"}
			}
			key := expr[i+1 : i+end]
			if key == "" {
				return nil, &SyntaxError{Expression: s, Offset: from + i, Reason: "empty key in []"}
			}
			tokens = append(tokens, key)
			i += end + 1
		case '.':
			next := strings.IndexAny(expr[i+1:], "[.")
			var attr string
			if next == -1 {
				attr = expr[i+1:]
				i = len(expr)
			} else {
				attr = expr[i+1 : i+1+next]
				i += 1 + next
			}
			if attr == "" {
				return nil, &SyntaxError{Expression: s, Offset: from + i, Reason: "empty attribute after '.'"}
			}
			tokens = append(tokens, attr)
		default:
			return nil, &SyntaxError{Expression: s, Offset: from + i, Reason: "expected '[' or '.' after key"}
		}
	}

	return &Field{Expr: expr, Tokens: tokens}, nil
}

// Fields returns the field references in order of appearance
func (t *Template) Fields() []Field {
	var fields []Field
	for _, seg := range t.segments {
		if seg.field != nil {
			fields = append(fields, *seg.field)
		}
	}
	return fields
}

// String returns the original format string
func (t *Template) String() string {
	return t.raw
}

// Execute substitutes every field with its canonical rendering from data.
// Substituted values are not scanned again.
func (t *Template) Execute(data any) (string, error) {
	var out strings.Builder
	for _, seg := range t.segments {
		if seg.field == nil {
			out.WriteString(seg.literal)
			continue
		}
		value, err := Lookup(data, seg.field.Tokens)
		if err != nil {
			if nf, ok := err.(*PathNotFoundError); ok {
				nf.Path = "{" + seg.field.Expr + "}"
			}
			return "", err
		}
		out.WriteString(Render(value))
	}
	return out.String(), nil
}
