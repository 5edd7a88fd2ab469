package schema

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"battdb/internal"
	"battdb/internal/util"
)

// countTolerance decides when a coefficient counts as exactly 1 and is
// omitted from the rendered formula.
const countTolerance = 1e-2

// ParseComposition reads the corpus composition notation into groups of
// element terms. Accepted shapes: the Python-literal string the upstream
// extraction tool writes ("[{'Li': '1.0', 'Mn': '2.0', 'O': '4.0'}]"), a
// decoded list of mappings, or a single mapping. Coefficients that do not
// parse as numbers are kept as variable tokens. Malformed input returns
// (nil, false); formula derivation is best-effort metadata, never blocking.
func ParseComposition(v any) (internal.Composition, bool) {
	switch value := v.(type) {
	case nil:
		return nil, false
	case string:
		return parseCompositionLiteral(value)
	case []any:
		comp := make(internal.Composition, 0, len(value))
		for _, part := range value {
			m, ok := part.(map[string]any)
			if !ok {
				return nil, false
			}
			group, ok := groupFromMap(m)
			if !ok {
				return nil, false
			}
			comp = append(comp, group)
		}
		if len(comp) == 0 {
			return nil, false
		}
		return comp, true
	case map[string]any:
		group, ok := groupFromMap(value)
		if !ok {
			return nil, false
		}
		return internal.Composition{group}, true
	default:
		return nil, false
	}
}

// HillFormula renders a composition as a Hill-ordered formula: carbon first
// when present, then hydrogen, then the remaining elements alphabetically.
// Counts merge across groups; a coefficient of 1 is omitted; a variable
// coefficient renders the bare symbol. Nil for an empty composition.
func HillFormula(comp internal.Composition) *string {
	totals, variable, order := mergeCounts(comp)
	if len(order) == 0 {
		return nil
	}

	var out strings.Builder
	for _, element := range hillOrder(order) {
		out.WriteString(element)
		if variable[element] {
			continue
		}
		n := totals[element]
		if math.Abs(n-1) < countTolerance {
			continue
		}
		if n == math.Trunc(n) {
			out.WriteString(strconv.Itoa(int(n)))
		} else {
			out.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
		}
	}
	formula := out.String()
	if formula == "" {
		return nil
	}
	return &formula
}

// ElementList is the set of distinct element symbols across all groups, in
// Hill order so downstream output stays deterministic.
func ElementList(comp internal.Composition) []string {
	_, _, order := mergeCounts(comp)
	if len(order) == 0 {
		return nil
	}
	return hillOrder(order)
}

func mergeCounts(comp internal.Composition) (map[string]float64, map[string]bool, []string) {
	totals := map[string]float64{}
	variable := map[string]bool{}
	var order []string
	for _, group := range comp {
		for _, term := range group {
			if _, seen := totals[term.Element]; !seen && !variable[term.Element] {
				order = append(order, term.Element)
			}
			if term.Count == nil {
				// Variable tokens are excluded from stoichiometric
				// arithmetic; the element still shows up bare.
				variable[term.Element] = true
				continue
			}
			totals[term.Element] += *term.Count
		}
	}
	return totals, variable, order
}

func hillOrder(elements []string) []string {
	rest := make([]string, 0, len(elements))
	hasC, hasH := false, false
	for _, el := range elements {
		switch el {
		case "C":
			hasC = true
		case "H":
			hasH = true
		default:
			rest = append(rest, el)
		}
	}
	sort.Strings(rest)

	out := make([]string, 0, len(elements))
	if hasC {
		out = append(out, "C")
	}
	if hasH {
		out = append(out, "H")
	}
	return append(out, rest...)
}

func groupFromMap(m map[string]any) (internal.CompositionGroup, bool) {
	if len(m) == 0 {
		return nil, false
	}
	elements := make([]string, 0, len(m))
	for el := range m {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	group := make(internal.CompositionGroup, 0, len(m))
	for _, el := range elements {
		term, ok := makeTerm(el, m[el])
		if !ok {
			return nil, false
		}
		group = append(group, term)
	}
	return group, true
}

func makeTerm(element string, coefficient any) (internal.CompositionTerm, bool) {
	if !isElementSymbol(element) {
		return internal.CompositionTerm{}, false
	}
	switch c := coefficient.(type) {
	case nil:
		return internal.CompositionTerm{Element: element, Count: util.FloatPtr(1)}, true
	case int:
		return internal.CompositionTerm{Element: element, Count: util.FloatPtr(float64(c))}, true
	case float64:
		return internal.CompositionTerm{Element: element, Count: util.FloatPtr(c)}, true
	case string:
		token := strings.TrimSpace(c)
		if token == "" {
			return internal.CompositionTerm{Element: element, Count: util.FloatPtr(1)}, true
		}
		if n, err := strconv.ParseFloat(token, 64); err == nil {
			return internal.CompositionTerm{Element: element, Count: util.FloatPtr(n)}, true
		}
		return internal.CompositionTerm{Element: element, Token: token}, true
	default:
		return internal.CompositionTerm{}, false
	}
}

func isElementSymbol(s string) bool {
	if len(s) == 0 || len(s) > 2 {
		return false
	}
	if s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	if len(s) == 2 && (s[1] < 'a' || s[1] > 'z') {
		return false
	}
	return true
}

// parseCompositionLiteral scans the Python-literal list-of-dicts notation.
// Single or double quotes, bare numbers and bare variable tokens are all
// accepted; anything structurally off fails the whole composition.
func parseCompositionLiteral(s string) (internal.Composition, bool) {
	p := &literalParser{input: s}
	p.skipSpace()

	var comp internal.Composition
	if p.peek() == '{' {
		group, ok := p.parseGroup()
		if !ok {
			return nil, false
		}
		comp = internal.Composition{group}
	} else {
		if !p.consume('[') {
			return nil, false
		}
		for {
			p.skipSpace()
			if p.consume(']') {
				break
			}
			group, ok := p.parseGroup()
			if !ok {
				return nil, false
			}
			comp = append(comp, group)
			p.skipSpace()
			if p.consume(',') {
				continue
			}
			if !p.consume(']') {
				return nil, false
			}
			break
		}
	}

	p.skipSpace()
	if !p.done() || len(comp) == 0 {
		return nil, false
	}
	return comp, true
}

type literalParser struct {
	input string
	pos   int
}

func (p *literalParser) done() bool { return p.pos >= len(p.input) }

func (p *literalParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.input[p.pos]
}

func (p *literalParser) consume(c byte) bool {
	if p.peek() != c {
		return false
	}
	p.pos++
	return true
}

func (p *literalParser) skipSpace() {
	for !p.done() && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func (p *literalParser) parseGroup() (internal.CompositionGroup, bool) {
	p.skipSpace()
	if !p.consume('{') {
		return nil, false
	}
	var group internal.CompositionGroup
	for {
		p.skipSpace()
		if p.consume('}') {
			break
		}
		key, ok := p.parseToken()
		if !ok {
			return nil, false
		}
		p.skipSpace()
		if !p.consume(':') {
			return nil, false
		}
		p.skipSpace()
		value, ok := p.parseToken()
		if !ok {
			return nil, false
		}
		term, ok := makeTerm(key, value)
		if !ok {
			return nil, false
		}
		group = append(group, term)
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if !p.consume('}') {
			return nil, false
		}
		break
	}
	if len(group) == 0 {
		return nil, false
	}
	return group, true
}

func (p *literalParser) parseToken() (string, bool) {
	if p.done() {
		return "", false
	}
	if c := p.peek(); c == '\'' || c == '"' {
		p.pos++
		start := p.pos
		for !p.done() && p.input[p.pos] != c {
			p.pos++
		}
		if p.done() {
			return "", false
		}
		token := p.input[start:p.pos]
		p.pos++
		return token, true
	}
	start := p.pos
	for !p.done() {
		switch p.input[p.pos] {
		case ',', ':', '{', '}', '[', ']', ' ', '\t', '\n', '\r':
			goto end
		}
		p.pos++
	}
end:
	token := strings.TrimSpace(p.input[start:p.pos])
	if token == "" {
		return "", false
	}
	return token, true
}
