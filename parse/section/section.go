// Package section splits mixed configuration text into runs of lines that
// share one syntax.
//
// Classification is heuristic and line-local. TOML is checked before YAML,
// YAML before properties. Blank lines, comments and lines that match no
// format never start a section; they join whichever section is open.
package section

import (
	"regexp"
	"strings"
)

type Format string

const (
	TOML       Format = "toml"
	YAML       Format = "yaml"
	Properties Format = "properties"
)

// Section is a run of lines in one format. Line numbers are 1-based and
// inclusive.
type Section struct {
	Text      string
	Format    Format
	StartLine int
	EndLine   int
}

var (
	tomlKeyPattern      = regexp.MustCompile(`^(?:[A-Za-z0-9_-]+|"[^"]*"|'[^']*')(?:\s*\.\s*(?:[A-Za-z0-9_-]+|"[^"]*"|'[^']*'))*$`)
	listItemPattern     = regexp.MustCompile(`^-(?:\s|$)`)
	bareKeyPattern      = regexp.MustCompile(`^[\w.-]+:$`)
	dottedEqualsPattern = regexp.MustCompile(`^[A-Za-z_][\w.-]*(?:\[\])?\s*=`)
)

// DetectLineFormat classifies a single line. ok is false for blank lines,
// comments and lines no rule matches.
func DetectLineFormat(line string) (f Format, ok bool) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return "", false
	}
	bare := unquoted(s)
	hasEq := strings.Contains(bare, "=")
	hasColon := strings.Contains(bare, ":")

	switch {
	case isTableHeader(s),
		hasEq && !hasColon && hasTOMLKey(s),
		strings.Contains(s, `"""`), strings.Contains(s, `'''`):
		return TOML, true
	case hasColon && !hasEq,
		listItemPattern.MatchString(s),
		bareKeyPattern.MatchString(s):
		return YAML, true
	case hasEq && !hasColon && !strings.ContainsAny(bare, "[{"),
		dottedEqualsPattern.MatchString(s):
		return Properties, true
	}
	return "", false
}

func isTableHeader(s string) bool {
	return len(s) >= 3 && s[0] == '[' && s[len(s)-1] == ']' && !strings.Contains(s, "=")
}

// hasTOMLKey reports whether the text left of the first '=' is a TOML key.
func hasTOMLKey(s string) bool {
	idx := strings.IndexByte(s, '=')
	if idx <= 0 {
		return false
	}
	return tomlKeyPattern.MatchString(strings.TrimSpace(s[:idx]))
}

// unquoted blanks out the contents of quoted strings so that separators
// inside them do not affect classification.
func unquoted(s string) string {
	b := []byte(s)
	var quote byte
	for i, ch := range b {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				b[i] = ' '
			}
		case ch == '"' || ch == '\'':
			quote = ch
		}
	}
	return string(b)
}

// detector is the per-call state of Detect.
type detector struct {
	lines    []string
	current  *Section
	sections []Section
	// set while a TOML multi-line string is open
	inString bool
}

func (d *detector) feed(i int, line string) {
	if d.inString {
		d.inString = !togglesMultiline(line)
		return
	}
	f, ok := DetectLineFormat(line)
	if !ok {
		return
	}
	if d.current == nil || !d.keeps(f, line) {
		d.close(i)
		d.current = &Section{Format: f, StartLine: i + 1}
	}
	if d.current.Format == TOML && togglesMultiline(line) {
		d.inString = true
	}
}

// keeps reports whether a line classified as f stays in the open section.
func (d *detector) keeps(f Format, line string) bool {
	if f == d.current.Format {
		return true
	}
	// "key = value:with:colons" is still TOML
	return d.current.Format == TOML && f == Properties && hasTOMLKey(strings.TrimSpace(line))
}

func togglesMultiline(line string) bool {
	return (strings.Count(line, `"""`)+strings.Count(line, `'''`))%2 == 1
}

// close ends the open section on the given 1-based line.
func (d *detector) close(endLine int) {
	if d.current == nil {
		return
	}
	d.current.EndLine = endLine
	d.current.Text = strings.Join(d.lines[d.current.StartLine-1:endLine], "\n")
	d.sections = append(d.sections, *d.current)
	d.current = nil
}

// Detect splits content into ordered, non-overlapping sections. Lines before
// the first classified line belong to no section. When nothing is classified
// the whole content is one properties section.
func Detect(content string) []Section {
	d := &detector{lines: strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")}
	for i, line := range d.lines {
		d.feed(i, line)
	}
	d.close(len(d.lines))

	if len(d.sections) == 0 {
		return []Section{{
			Text:      content,
			Format:    Properties,
			StartLine: 1,
			EndLine:   len(d.lines),
		}}
	}
	return d.sections
}
