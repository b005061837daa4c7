// Package parser converts between the canonical section-marker text of a
// journal entry and its structured bullet sequence.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/dagaz/internal/models"
)

var (
	headerRe = regexp.MustCompile(`^#\s+(.+?)\s*$`)
	refRe    = regexp.MustCompile(`\[\[([^\[\]]+?)\]\]`)
)

// sectionTitles maps each bullet type to its canonical header title.
var sectionTitles = map[models.BulletType]string{
	models.Task:        "Tasks",
	models.Event:       "Events",
	models.Note:        "Notes",
	models.Priority:    "Priority",
	models.Inspiration: "Inspiration",
	models.Insight:     "Insights",
	models.Misstep:     "Missteps",
}

// typeByHeader is the inverse lookup, keyed by lowercased title.
var typeByHeader = func() map[string]models.BulletType {
	m := make(map[string]models.BulletType, len(sectionTitles))
	for t, title := range sectionTitles {
		m[strings.ToLower(title)] = t
	}
	return m
}()

// Warning describes input that was skipped during parsing. Parsing never
// aborts on bad input; it recovers and reports.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// Ref is a cross-reference marker found in bullet content: [[2025-08-21]]
// or [[type:2025-08-21]].
type Ref struct {
	Target models.Date
	Type   string
}

// Result holds the outcome of parsing entry text. Bullets are normalized
// into canonical section order, document order preserved within each type.
type Result struct {
	Bullets  []models.Bullet
	Refs     []Ref
	Warnings []Warning
}

// Parse converts entry text into its bullet sequence. Section headers are
// matched case-insensitively; lines under an unrecognized header, and lines
// before any header, are skipped and reported as warnings.
func Parse(text string) *Result {
	res := &Result{}
	grouped := make(map[models.BulletType][]models.Bullet)

	var current models.BulletType
	inSection := false
	skipping := false

	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := headerRe.FindStringSubmatch(trimmed); m != nil {
			title := strings.TrimSpace(m[1])
			if t, ok := typeByHeader[strings.ToLower(title)]; ok {
				current, inSection, skipping = t, true, false
			} else {
				inSection, skipping = false, true
				res.Warnings = append(res.Warnings, Warning{
					Line:    i + 1,
					Message: fmt.Sprintf("unrecognized section header %q, section skipped", title),
				})
			}
			continue
		}

		if skipping {
			continue
		}
		if !inSection {
			res.Warnings = append(res.Warnings, Warning{
				Line:    i + 1,
				Message: "content before first section header ignored",
			})
			continue
		}

		b := models.Bullet{Type: current, Content: trimmed}
		if current == models.Task {
			b.TaskState, b.Content = splitTaskMarker(trimmed)
			if b.Content == "" {
				continue
			}
		}
		grouped[current] = append(grouped[current], b)
	}

	for _, t := range models.BulletTypes {
		res.Bullets = append(res.Bullets, grouped[t]...)
	}
	res.Refs = ExtractRefs(res.Bullets)
	return res
}

// splitTaskMarker strips a leading [x]/[>]/[<]/[ ] state marker from a task
// line. A bracket pair that is not a known marker stays literal content.
func splitTaskMarker(line string) (models.TaskState, string) {
	if len(line) >= 3 && line[0] == '[' && line[2] == ']' {
		var state models.TaskState
		switch line[1] {
		case 'x', 'X':
			state = models.Completed
		case '>':
			state = models.Migrated
		case '<':
			state = models.Scheduled
		case ' ':
			state = models.Pending
		default:
			return models.Pending, line
		}
		return state, strings.TrimSpace(line[3:])
	}
	return models.Pending, line
}

// ExtractRefs scans bullet content for [[date]] and [[type:date]] markers.
// Targets that do not parse as dates are ignored. Edges are deduplicated
// by (target, type) in first-seen order.
func ExtractRefs(bullets []models.Bullet) []Ref {
	type key struct {
		target string
		typ    string
	}
	seen := make(map[key]struct{})
	var out []Ref
	for _, b := range bullets {
		for _, m := range refRe.FindAllStringSubmatch(b.Content, -1) {
			inner := strings.TrimSpace(m[1])
			typ := "inline"
			dateStr := inner
			if before, after, ok := strings.Cut(inner, ":"); ok {
				typ = strings.ToLower(strings.TrimSpace(before))
				dateStr = strings.TrimSpace(after)
				if typ == "" {
					continue
				}
			}
			target, err := models.ParseDate(dateStr)
			if err != nil {
				continue
			}
			k := key{target: target.String(), typ: typ}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, Ref{Target: target, Type: typ})
		}
	}
	return out
}

// taskMarker renders the serialized prefix for a task state. Pending has
// no marker; it is the default on parse.
func taskMarker(s models.TaskState) string {
	switch s {
	case models.Completed:
		return "[x] "
	case models.Migrated:
		return "[>] "
	case models.Scheduled:
		return "[<] "
	}
	return ""
}

// Serialize renders an entry in canonical form: non-empty sections only,
// canonical header casing and order, one bullet per line, a blank line
// between sections. Serializing a parsed entry and re-parsing it yields an
// equal bullet sequence.
func Serialize(e *models.Entry) string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	for _, t := range models.BulletTypes {
		wrote := false
		for _, b := range e.Bullets {
			if b.Type != t {
				continue
			}
			if !wrote {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString("# ")
				sb.WriteString(sectionTitles[t])
				sb.WriteString("\n")
				wrote = true
			}
			if t == models.Task {
				sb.WriteString(taskMarker(b.TaskState))
			}
			sb.WriteString(b.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// SerializeTemplate renders an entry with every section header present,
// empty or not, for editors that want the full scaffold.
func SerializeTemplate(e *models.Entry) string {
	var sb strings.Builder
	for _, t := range models.BulletTypes {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("# ")
		sb.WriteString(sectionTitles[t])
		sb.WriteString("\n")
		if e == nil {
			continue
		}
		for _, b := range e.Bullets {
			if b.Type != t {
				continue
			}
			if t == models.Task {
				sb.WriteString(taskMarker(b.TaskState))
			}
			sb.WriteString(b.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
