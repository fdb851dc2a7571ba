package reader

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

var (
	nodeInnerRe = regexp.MustCompile("(?s)^\\s*([A-Za-z_][A-Za-z0-9_]*)?\\s*((?::\\s*(?:`[^`]+`|[A-Za-z_][A-Za-z0-9_]*)\\s*)*)(\\{.*\\})?\\s*$")
	relInnerRe  = regexp.MustCompile("(?s)^\\s*([A-Za-z_][A-Za-z0-9_]*)?\\s*(?::\\s*(`[^`]+`|[A-Za-z_][A-Za-z0-9_]*))?\\s*(?:\\*[^{]*)?(\\{.*\\})?\\s*$")
)

// CypherReader reads CREATE statements of a Cypher export. Node labels map
// onto entity types through the schema alias table and relationship types
// through the link keyword table.
type CypherReader struct {
	types *schema.Registry
}

func NewCypherReader(types *schema.Registry) *CypherReader {
	return &CypherReader{types: types}
}

func (c *CypherReader) Read(ctx context.Context, src Source) (*Dataset, error) {
	text := stripCypherComments(string(src.Data))
	statements := createStatements(text)
	if len(statements) == 0 {
		return nil, report.FormatErrorf(src.Name, "no CREATE statement")
	}

	p := &cypherParser{
		types:    c.types,
		sourceID: src.ID,
		vars:     make(map[string]*Record),
		ds:       &Dataset{Format: FormatCypher, SourceID: src.ID},
	}
	for i, stmt := range statements {
		if err := canceled(ctx, i); err != nil {
			return nil, err
		}
		if err := p.statement(stmt); err != nil {
			return nil, report.NewFormatError(fmt.Sprintf("%s: CREATE #%d", src.Name, i+1), err)
		}
	}
	return p.ds, nil
}

type cypherParser struct {
	types    *schema.Registry
	sourceID string
	vars     map[string]*Record
	ds       *Dataset

	s   string
	pos int
}

func (p *cypherParser) statement(body string) error {
	if err := checkBalanced(body); err != nil {
		return err
	}
	p.s, p.pos = body, 0

	p.skipSpace()
	if p.peek() != '(' {
		return fmt.Errorf("expected pattern after CREATE")
	}
	for {
		p.skipSpace()
		if p.peek() != '(' {
			// Anything after the patterns (RETURN, ";") is ignored.
			return nil
		}
		if err := p.path(); err != nil {
			return err
		}
		p.skipSpace()
		if p.peek() != ',' {
			return nil
		}
		p.pos++
	}
}

// path reads "(a)" or a chain "(a)-[:R]->(b)<-[:S]-(c)".
func (p *cypherParser) path() error {
	inner, err := p.group('(', ')')
	if err != nil {
		return err
	}
	prev, err := p.node(inner)
	if err != nil {
		return err
	}

	for {
		p.skipSpace()
		left := false
		switch {
		case strings.HasPrefix(p.s[p.pos:], "<-"):
			left = true
			p.pos += 2
		case strings.HasPrefix(p.s[p.pos:], "-"):
			p.pos++
		default:
			return nil
		}

		p.skipSpace()
		var relInner string
		if p.peek() == '[' {
			if relInner, err = p.group('[', ']'); err != nil {
				return err
			}
		}
		p.skipSpace()
		switch {
		case !left && strings.HasPrefix(p.s[p.pos:], "->"):
			p.pos += 2
		case strings.HasPrefix(p.s[p.pos:], "-"):
			p.pos++
		default:
			return fmt.Errorf("malformed relationship near %q", excerpt(p.s[p.pos:]))
		}

		p.skipSpace()
		if p.peek() != '(' {
			return fmt.Errorf("relationship without end node near %q", excerpt(p.s[p.pos:]))
		}
		nodeInner, err := p.group('(', ')')
		if err != nil {
			return err
		}
		next, err := p.node(nodeInner)
		if err != nil {
			return err
		}

		from, to := prev, next
		if left {
			from, to = next, prev
		}
		if err := p.relationship(relInner, from, to); err != nil {
			return err
		}
		prev = next
	}
}

// node registers a node pattern and returns its entity id. A bare variable
// refers to a node defined earlier.
func (p *cypherParser) node(inner string) (string, error) {
	m := nodeInnerRe.FindStringSubmatch(inner)
	if m == nil {
		return "", fmt.Errorf("invalid node pattern %q", excerpt(inner))
	}
	variable := m[1]
	labels := splitLabels(m[2])
	props, err := parsePropertyMap(m[3])
	if err != nil {
		return "", err
	}

	if variable != "" {
		if rec, ok := p.vars[variable]; ok {
			for _, kv := range props {
				if kv.key != "id" && !rec.Has(nodeColumn(kv.key)) {
					rec.Set(nodeColumn(kv.key), kv.value)
				}
			}
			return rec.Values["id"].(string), nil
		}
	}

	id := ""
	for _, kv := range props {
		if kv.key == "id" {
			if s, ok := common.FormatScalar(kv.value); ok {
				id = s
			}
		}
	}
	if id == "" {
		id = variable
	}
	if id == "" {
		id = SynthesizeID(FormatCypher, p.sourceID, len(p.ds.Entities))
	}

	rec := NewRecord()
	rec.Set("id", id)
	entityType := schema.TypePerson
	if len(labels) > 0 {
		if t, ok := p.types.NormalizeEntityType(strings.ToLower(labels[0])); ok {
			entityType = t
		}
	}
	rec.Set("type", entityType)
	if len(labels) > 0 {
		all := make([]any, len(labels))
		for i, l := range labels {
			all[i] = l
		}
		rec.Set("labels", all)
	}
	for _, kv := range props {
		if kv.key == "id" {
			continue
		}
		rec.Set(nodeColumn(kv.key), kv.value)
	}

	p.ds.Entities = append(p.ds.Entities, rec)
	if variable != "" {
		p.vars[variable] = rec
	}
	return id, nil
}

// nodeColumn keeps node properties from shadowing canonical keys.
func nodeColumn(key string) string {
	switch key {
	case "type", "source", "target":
		return "props." + key
	}
	return key
}

func (p *cypherParser) relationship(inner, from, to string) error {
	m := relInnerRe.FindStringSubmatch(inner)
	if m == nil {
		return fmt.Errorf("invalid relationship pattern %q", excerpt(inner))
	}
	relType := strings.Trim(m[2], "`")
	props, err := parsePropertyMap(m[3])
	if err != nil {
		return err
	}

	rec := NewRecord()
	id := ""
	for _, kv := range props {
		if kv.key == "id" {
			if s, ok := common.FormatScalar(kv.value); ok {
				id = s
			}
		}
	}
	if id == "" {
		id = SynthesizeID(FormatCypher, p.sourceID, len(p.ds.Links))
	}
	rec.Set("id", id)
	rec.Set("source", from)
	rec.Set("target", to)

	linkType, ok := p.types.NormalizeLinkType(relType)
	if !ok {
		linkType = schema.LinkAssociates
	}
	rec.Set("type", linkType)
	if relType != "" && !strings.EqualFold(relType, linkType) {
		rec.Set("relationship", relType)
	}
	for _, kv := range props {
		switch kv.key {
		case "id":
		case "type", "source", "target", "relationship":
			rec.Set("props."+kv.key, kv.value)
		default:
			rec.Set(kv.key, kv.value)
		}
	}
	p.ds.Links = append(p.ds.Links, rec)
	return nil
}

func (p *cypherParser) skipSpace() {
	for p.pos < len(p.s) && strings.ContainsRune(" \t\r\n", rune(p.s[p.pos])) {
		p.pos++
	}
}

func (p *cypherParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

// group reads a bracketed group starting at the current position and
// returns its inner text. Quoted text and nested brackets are skipped.
func (p *cypherParser) group(open, close byte) (string, error) {
	if p.peek() != open {
		return "", fmt.Errorf("expected %q near %q", open, excerpt(p.s[p.pos:]))
	}
	start := p.pos + 1
	depth := 0
	var quote byte
	for i := p.pos; i < len(p.s); i++ {
		ch := p.s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				if ch != close {
					return "", fmt.Errorf("mismatched %q near %q", ch, excerpt(p.s[start:]))
				}
				p.pos = i + 1
				return p.s[start:i], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced %q near %q", open, excerpt(p.s[start-1:]))
}

type keyValue struct {
	key   string
	value any
}

// parsePropertyMap parses "{k: v, ...}". Keys may be quoted or backticked.
func parsePropertyMap(text string) ([]keyValue, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	text = strings.TrimSpace(text[1 : len(text)-1])
	if text == "" {
		return nil, nil
	}

	var out []keyValue
	for _, part := range splitTopLevel(text, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := splitTopLevel(part, ':')
		if len(kv) < 2 {
			return nil, fmt.Errorf("invalid property %q", excerpt(part))
		}
		key := unquoteKey(strings.TrimSpace(kv[0]))
		if key == "" {
			return nil, fmt.Errorf("empty property name in %q", excerpt(part))
		}
		raw := strings.TrimSpace(strings.Join(kv[1:], ":"))
		out = append(out, keyValue{key: key, value: cypherValue(key, raw)})
	}
	return out, nil
}

// cypherValue converts a literal. Quoted strings stay strings; unquoted
// numbers become float64 unless the key is on the string-number list.
func cypherValue(key, raw string) any {
	if raw == "" {
		return nil
	}
	switch raw[0] {
	case '\'', '"':
		return unquote(raw)
	case '[':
		inner := strings.TrimSpace(raw[1 : len(raw)-1])
		if inner == "" {
			return []any{}
		}
		parts := splitTopLevel(inner, ',')
		list := make([]any, 0, len(parts))
		for _, item := range parts {
			list = append(list, cypherValue(key, strings.TrimSpace(item)))
		}
		return list
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if !schema.IsStringNumberField(key) {
		if f, ok := common.ParseNumber(raw); ok {
			return f
		}
	}
	return raw
}

func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	q := raw[0]
	body := raw[1:]
	if body[len(body)-1] == q {
		body = body[:len(body)-1]
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(body[i])
			}
			continue
		}
		b.WriteByte(body[i])
	}
	return b.String()
}

func unquoteKey(key string) string {
	if len(key) >= 2 && strings.ContainsRune("'\"`", rune(key[0])) && key[len(key)-1] == key[0] {
		return key[1 : len(key)-1]
	}
	return key
}

// splitTopLevel splits on sep outside quotes and brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func splitLabels(s string) []string {
	var labels []string
	for _, part := range strings.Split(s, ":") {
		part = strings.Trim(strings.TrimSpace(part), "`")
		if part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}

// checkBalanced verifies brackets and quotes pair up outside string
// literals.
func checkBalanced(s string) error {
	var stack []byte
	var quote byte
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(', '[', '{':
			stack = append(stack, ch)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
				return fmt.Errorf("unbalanced %q near %q", ch, excerpt(s[i:]))
			}
			stack = stack[:len(stack)-1]
		}
	}
	if quote != 0 {
		return fmt.Errorf("unterminated string literal")
	}
	if len(stack) > 0 {
		return fmt.Errorf("unbalanced %q", stack[len(stack)-1])
	}
	return nil
}

// stripCypherComments removes "//" line comments outside string literals.
func stripCypherComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		if ch == '\'' || ch == '"' || ch == '`' {
			quote = ch
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// createStatements returns the text following each CREATE keyword found
// outside string literals, up to the next CREATE or ";".
func createStatements(s string) []string {
	var starts []int
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' || ch == '`' {
			quote = ch
			continue
		}
		if (ch == 'c' || ch == 'C') && i+6 <= len(s) && strings.EqualFold(s[i:i+6], "create") &&
			(i == 0 || !isIdentByte(s[i-1])) && (i+6 == len(s) || !isIdentByte(s[i+6])) {
			starts = append(starts, i)
			i += 5
		}
	}

	statements := make([]string, 0, len(starts))
	for n, start := range starts {
		end := len(s)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		body := s[start+6 : end]
		if semi := indexOutsideQuotes(body, ';'); semi >= 0 {
			body = body[:semi]
		}
		statements = append(statements, body)
	}
	return statements
}

func indexOutsideQuotes(s string, target byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' || ch == '`' {
			quote = ch
			continue
		}
		if ch == target {
			return i
		}
	}
	return -1
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func excerpt(s string) string {
	const max = 40
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
