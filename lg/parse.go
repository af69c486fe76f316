package lg

import (
	"fmt"
	"regexp"
	"strings"
)

// BodyKind classifies a template body.
type BodyKind int

const (
	// BodyVariants picks one of several text variants.
	BodyVariants BodyKind = iota
	// BodyIfElse evaluates IF / ELSEIF / ELSE branches in order.
	BodyIfElse
	// BodySwitch matches a SWITCH value against CASE branches.
	BodySwitch
	// BodyStructured builds an object from Key = value lines.
	BodyStructured
)

// Branch is one arm of a conditional body.
type Branch struct {
	Keyword  string // IF, ELSEIF, ELSE, CASE or DEFAULT
	Expr     string // condition (IF/ELSEIF) or case value (CASE)
	Variants []string
}

// Property is a single structured body line.
type Property struct {
	Key   string
	Value string
}

// Template is a parsed LG template.
type Template struct {
	Name       string
	Params     []string
	Kind       BodyKind
	Variants   []string
	Branches   []Branch
	Switch     string
	Type       string // structured body type, e.g. "Activity"
	Properties []Property
	Source     string
	Line       int
}

// File is the parse result of one .lg resource.
type File struct {
	Source    string
	Templates []*Template
	Imports   []string
}

// ParseError reports a syntax problem with its location.
type ParseError struct {
	Source string
	Line   int
	Msg    string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg) }

var (
	headerRe     = regexp.MustCompile(`^#\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:\(([^)]*)\))?\s*$`)
	importRe     = regexp.MustCompile(`^\[[^\]]*\]\(([^)]+)\)$`)
	structuredRe = regexp.MustCompile(`^\[\s*([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	keywordRe    = regexp.MustCompile(`(?i)^(IF|ELSEIF|ELSE|SWITCH|CASE|DEFAULT)\s*:\s*(.*)$`)
	identRe      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

const fence = "```"

type parser struct {
	file    *File
	cur     *Template
	names   map[string]int
	lineNo  int
	fenced  []string
	inFence bool
	inStruc bool
}

// Parse parses LG content. source names the resource in error messages.
func Parse(source, content string) (*File, error) {
	p := &parser{file: &File{Source: source}, names: map[string]int{}}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		p.lineNo = i + 1
		if err := p.line(line); err != nil {
			return nil, err
		}
	}

	if p.inFence {
		return nil, p.errorf("unterminated multiline text")
	}
	if p.inStruc {
		return nil, p.errorf("unterminated structured body")
	}
	if err := p.finish(); err != nil {
		return nil, err
	}

	return p.file, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Source: p.file.Source, Line: p.lineNo, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) line(raw string) error {
	if p.inFence {
		if idx := strings.Index(raw, fence); idx >= 0 {
			p.fenced = append(p.fenced, raw[:idx])
			p.inFence = false
			return p.addVariant(strings.Trim(strings.Join(p.fenced, "\n"), "\n"))
		}
		p.fenced = append(p.fenced, raw)
		return nil
	}

	line := strings.TrimSpace(raw)

	if p.inStruc {
		if line == "]" {
			p.inStruc = false
			return nil
		}
		if line == "" || strings.HasPrefix(line, ">") {
			return nil
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return p.errorf("expected Key = value in structured body")
		}
		p.cur.Properties = append(p.cur.Properties, Property{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
		return nil
	}

	switch {
	case line == "" || strings.HasPrefix(line, ">"):
		return nil
	case strings.HasPrefix(line, "#"):
		return p.header(line)
	case importRe.MatchString(line):
		p.file.Imports = append(p.file.Imports, importRe.FindStringSubmatch(line)[1])
		return nil
	case structuredRe.MatchString(line):
		return p.structured(line)
	case strings.HasPrefix(line, "-"):
		return p.body(strings.TrimSpace(line[1:]))
	default:
		return p.errorf("unexpected line %q", line)
	}
}

func (p *parser) header(line string) error {
	if err := p.finish(); err != nil {
		return err
	}

	m := headerRe.FindStringSubmatch(line)
	if m == nil {
		return p.errorf("invalid template header %q", line)
	}

	name := m[1]
	if prev, ok := p.names[name]; ok {
		return p.errorf("duplicate template %s (first defined on line %d)", name, prev)
	}
	p.names[name] = p.lineNo

	var params []string
	if strings.TrimSpace(m[2]) != "" {
		for _, raw := range strings.Split(m[2], ",") {
			param := strings.TrimSpace(raw)
			if !identRe.MatchString(param) {
				return p.errorf("invalid parameter %q in template %s", param, name)
			}
			params = append(params, param)
		}
	}

	p.cur = &Template{Name: name, Params: params, Source: p.file.Source, Line: p.lineNo}

	return nil
}

func (p *parser) structured(line string) error {
	if p.cur == nil {
		return p.errorf("structured body outside of a template")
	}
	if len(p.cur.Variants) > 0 || len(p.cur.Branches) > 0 || p.cur.Kind != BodyVariants {
		return p.errorf("template %s mixes structured and text bodies", p.cur.Name)
	}
	p.cur.Kind = BodyStructured
	p.cur.Type = structuredRe.FindStringSubmatch(line)[1]
	p.inStruc = true
	return nil
}

func (p *parser) body(item string) error {
	if p.cur == nil {
		return p.errorf("template body outside of a template")
	}
	if p.cur.Kind == BodyStructured {
		return p.errorf("template %s mixes structured and text bodies", p.cur.Name)
	}

	if strings.HasPrefix(item, fence) {
		rest := item[len(fence):]
		if end := strings.Index(rest, fence); end >= 0 {
			return p.addVariant(rest[:end])
		}
		p.inFence = true
		p.fenced = nil
		if rest != "" {
			p.fenced = append(p.fenced, rest)
		}
		return nil
	}

	if m := keywordRe.FindStringSubmatch(item); m != nil {
		return p.keyword(strings.ToUpper(m[1]), strings.TrimSpace(m[2]))
	}

	return p.addVariant(item)
}

func (p *parser) keyword(kw, exprText string) error {
	t := p.cur
	if len(t.Variants) > 0 {
		return p.errorf("template %s mixes plain variants and %s", t.Name, kw)
	}

	switch kw {
	case "IF":
		if t.Kind != BodyVariants || len(t.Branches) > 0 {
			return p.errorf("IF must start the body of template %s", t.Name)
		}
		t.Kind = BodyIfElse
	case "ELSEIF", "ELSE":
		if t.Kind != BodyIfElse {
			return p.errorf("%s without IF in template %s", kw, t.Name)
		}
		if last := t.Branches[len(t.Branches)-1]; last.Keyword == "ELSE" {
			return p.errorf("%s after ELSE in template %s", kw, t.Name)
		}
	case "SWITCH":
		if t.Kind != BodyVariants || len(t.Branches) > 0 {
			return p.errorf("SWITCH must start the body of template %s", t.Name)
		}
		t.Kind = BodySwitch
		t.Switch = unwrap(exprText)
		return nil
	case "CASE", "DEFAULT":
		if t.Kind != BodySwitch {
			return p.errorf("%s without SWITCH in template %s", kw, t.Name)
		}
		if n := len(t.Branches); n > 0 && t.Branches[n-1].Keyword == "DEFAULT" {
			return p.errorf("%s after DEFAULT in template %s", kw, t.Name)
		}
	}

	if (kw == "IF" || kw == "ELSEIF" || kw == "CASE") && exprText == "" {
		return p.errorf("%s requires an expression in template %s", kw, t.Name)
	}

	if n := len(t.Branches); n > 0 && len(t.Branches[n-1].Variants) == 0 {
		return p.errorf("empty %s branch in template %s", t.Branches[n-1].Keyword, t.Name)
	}

	b := Branch{Keyword: kw}
	switch kw {
	case "IF", "ELSEIF":
		b.Expr = unwrap(exprText)
	case "CASE":
		b.Expr = exprText
	}
	t.Branches = append(t.Branches, b)

	return nil
}

func (p *parser) addVariant(text string) error {
	t := p.cur
	switch t.Kind {
	case BodyIfElse, BodySwitch:
		if len(t.Branches) == 0 {
			return p.errorf("SWITCH in template %s must be followed by CASE", t.Name)
		}
		b := &t.Branches[len(t.Branches)-1]
		b.Variants = append(b.Variants, text)
	default:
		t.Variants = append(t.Variants, text)
	}
	return nil
}

// finish validates and appends the current template.
func (p *parser) finish() error {
	t := p.cur
	if t == nil {
		return nil
	}
	p.cur = nil

	switch t.Kind {
	case BodyVariants:
		if len(t.Variants) == 0 {
			return p.errorf("template %s has no body", t.Name)
		}
	case BodyIfElse, BodySwitch:
		if len(t.Branches) == 0 {
			return p.errorf("template %s has no branches", t.Name)
		}
		if last := t.Branches[len(t.Branches)-1]; len(last.Variants) == 0 {
			return p.errorf("empty %s branch in template %s", last.Keyword, t.Name)
		}
	case BodyStructured:
		if len(t.Properties) == 0 {
			return p.errorf("structured template %s has no properties", t.Name)
		}
	}

	p.file.Templates = append(p.file.Templates, t)

	return nil
}

// unwrap strips a surrounding ${ } from an expression.
func unwrap(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}
