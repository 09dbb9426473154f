// Package pathexpr extracts a single value from a nested response and renders
// it to the canonical string used for wait comparisons.
//
// Two expression styles are accepted:
//   - format style, e.g. "{Table[TableStatus]}" or "{rk2[4][rks1]}", with
//     optional literal text around exactly one field reference
//   - JSON Pointer style (RFC 6901), e.g. "/Table/TableStatus"
package pathexpr

// Expression is a compiled wait-for path
type Expression struct {
	raw      string
	template *Template
	tokens   []string
}

// Compile parses expr once so that it can be evaluated on every poll attempt
func Compile(expr string) (*Expression, error) {
	if IsPointer(expr) {
		tokens, err := pointerTokens(expr)
		if err != nil {
			return nil, err
		}
		return &Expression{raw: expr, tokens: tokens}, nil
	}

	tmpl, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	if n := len(tmpl.Fields()); n != 1 {
		return nil, &SyntaxError{Expression: expr, Reason: "expected exactly one {field} reference"}
	}
	return &Expression{raw: expr, template: tmpl}, nil
}

// String returns the expression as written
func (e *Expression) String() string {
	return e.raw
}

// Evaluate resolves the expression against data and renders the result
func (e *Expression) Evaluate(data any) (string, error) {
	if e.template != nil {
		return e.template.Execute(data)
	}

	value, err := Lookup(data, e.tokens)
	if err != nil {
		if nf, ok := err.(*PathNotFoundError); ok {
			nf.Path = e.raw
		}
		return "", err
	}
	return Render(value), nil
}

// Resolve compiles and evaluates expr against data in one call
func Resolve(expr string, data any) (string, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return "", err
	}
	return compiled.Evaluate(data)
}
