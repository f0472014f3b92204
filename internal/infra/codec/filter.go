package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// Filter expression grammar, used for the filter key in board records:
//
//	filter := ("all" | "any") "(" item (";" item)* ")"
//	item   := filter | predicate
//	pred   := key ":" value | key "<" time | key ">" time
//
// Set-valued predicates separate members with "|". Values escape the
// structural characters with a backslash.

const filterSeps = `;()|:<>,`

// EncodeFilter renders a filter tree as a single-line expression.
func EncodeFilter(f domain.Filter) string {
	mode := f.Mode
	if mode == "" {
		mode = domain.MatchAll
	}
	items := make([]string, 0, len(f.Predicates)+len(f.Subfilters))
	for _, p := range f.Predicates {
		items = append(items, encodePredicate(p))
	}
	for _, sub := range f.Subfilters {
		items = append(items, EncodeFilter(sub))
	}
	return string(mode) + "(" + strings.Join(items, ";") + ")"
}

func encodePredicate(p domain.Predicate) string {
	switch p.Kind {
	case domain.PredStatus:
		members := make([]string, len(p.Statuses))
		for i, s := range p.Statuses {
			members[i] = string(s)
		}
		return "status:" + strings.Join(members, "|")
	case domain.PredPriority:
		members := make([]string, len(p.Priorities))
		for i, pr := range p.Priorities {
			members[i] = string(pr)
		}
		return "priority:" + strings.Join(members, "|")
	case domain.PredKind:
		return "kind:" + string(p.EntityKind)
	case domain.PredProject:
		return "project:" + escapeItem(p.Value, filterSeps)
	case domain.PredContext:
		return "context:" + escapeItem(p.Value, filterSeps)
	case domain.PredTag:
		return "tag:" + escapeItem(p.Value, filterSeps)
	case domain.PredText:
		return "text:" + escapeItem(p.Value, filterSeps)
	case domain.PredFlagged:
		return "flagged:" + strconv.FormatBool(p.Flag)
	case domain.PredOverdue:
		return "overdue:" + strconv.FormatBool(p.Flag)
	case domain.PredHasSubtasks:
		return "subtasks:" + strconv.FormatBool(p.Flag)
	case domain.PredHasRecurrence:
		return "repeat:" + strconv.FormatBool(p.Flag)
	case domain.PredDueBefore:
		return "due<" + p.Time.UTC().Format(timeFmt)
	case domain.PredDueAfter:
		return "due>" + p.Time.UTC().Format(timeFmt)
	case domain.PredDeferBefore:
		return "defer<" + p.Time.UTC().Format(timeFmt)
	case domain.PredDeferAfter:
		return "defer>" + p.Time.UTC().Format(timeFmt)
	case domain.PredCompletedAfter:
		return "done>" + p.Time.UTC().Format(timeFmt)
	default:
		return ""
	}
}

// ParseFilter parses a filter expression produced by EncodeFilter.
func ParseFilter(s string) (domain.Filter, error) {
	p := &filterParser{s: strings.TrimSpace(s)}
	f, err := p.parseFilter()
	if err != nil {
		return domain.Filter{}, err
	}
	p.skipSpaces()
	if p.pos != len(p.s) {
		return domain.Filter{}, errFormat("trailing content after filter expression")
	}
	return f, nil
}

type filterParser struct {
	s   string
	pos int
}

func (p *filterParser) skipSpaces() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *filterParser) parseFilter() (domain.Filter, error) {
	p.skipSpaces()
	var mode domain.MatchMode
	switch {
	case strings.HasPrefix(p.s[p.pos:], "all("):
		mode = domain.MatchAll
		p.pos += 4
	case strings.HasPrefix(p.s[p.pos:], "any("):
		mode = domain.MatchAny
		p.pos += 4
	default:
		return domain.Filter{}, errFormat("expected all( or any(")
	}

	f := domain.Filter{Mode: mode}
	for {
		p.skipSpaces()
		if p.pos >= len(p.s) {
			return domain.Filter{}, errFormat("unterminated filter expression")
		}
		if p.s[p.pos] == ')' {
			p.pos++
			return f, nil
		}
		if p.s[p.pos] == ';' {
			p.pos++
			continue
		}
		if strings.HasPrefix(p.s[p.pos:], "all(") || strings.HasPrefix(p.s[p.pos:], "any(") {
			sub, err := p.parseFilter()
			if err != nil {
				return domain.Filter{}, err
			}
			f.Subfilters = append(f.Subfilters, sub)
			continue
		}
		pred, err := p.parsePredicate()
		if err != nil {
			return domain.Filter{}, err
		}
		f.Predicates = append(f.Predicates, pred)
	}
}

// parsePredicate consumes up to the next unescaped ';' or ')'.
func (p *filterParser) parsePredicate() (domain.Predicate, error) {
	start := p.pos
	escaped := false
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if escaped {
			escaped = false
			p.pos++
			continue
		}
		if c == '\\' {
			escaped = true
			p.pos++
			continue
		}
		if c == ';' || c == ')' {
			break
		}
		p.pos++
	}
	return parsePredicateText(p.s[start:p.pos])
}

func parsePredicateText(s string) (domain.Predicate, error) {
	key, op, value, err := cutPredicate(s)
	if err != nil {
		return domain.Predicate{}, err
	}
	switch op {
	case ':':
		return parseEqualityPredicate(key, value)
	case '<', '>':
		return parseDatePredicate(key, op, value)
	}
	return domain.Predicate{}, errFormat("predicate missing operator")
}

func cutPredicate(s string) (key string, op byte, value string, err error) {
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == ':' || c == '<' || c == '>' {
			return s[:i], c, s[i+1:], nil
		}
	}
	return "", 0, "", errFormat("predicate missing operator")
}

func parseEqualityPredicate(key, value string) (domain.Predicate, error) {
	switch key {
	case "status":
		pred := domain.Predicate{Kind: domain.PredStatus}
		for _, m := range splitEscapedRune(value, '|') {
			status := domain.Status(unescapeValue(m))
			if !status.IsValid() {
				return domain.Predicate{}, errFormat("unknown status " + strconv.Quote(m))
			}
			pred.Statuses = append(pred.Statuses, status)
		}
		return pred, nil
	case "priority":
		pred := domain.Predicate{Kind: domain.PredPriority}
		for _, m := range splitEscapedRune(value, '|') {
			prio := domain.Priority(unescapeValue(m))
			if !prio.IsValid() {
				return domain.Predicate{}, errFormat("unknown priority " + strconv.Quote(m))
			}
			pred.Priorities = append(pred.Priorities, prio)
		}
		return pred, nil
	case "kind":
		kind := domain.Kind(value)
		if !kind.IsValid() {
			return domain.Predicate{}, errFormat("unknown kind " + strconv.Quote(value))
		}
		return domain.Predicate{Kind: domain.PredKind, EntityKind: kind}, nil
	case "project":
		return domain.Predicate{Kind: domain.PredProject, Value: unescapeValue(value)}, nil
	case "context":
		return domain.Predicate{Kind: domain.PredContext, Value: unescapeValue(value)}, nil
	case "tag":
		return domain.Predicate{Kind: domain.PredTag, Value: unescapeValue(value)}, nil
	case "text":
		return domain.Predicate{Kind: domain.PredText, Value: unescapeValue(value)}, nil
	case "flagged", "overdue", "subtasks", "repeat":
		flag, err := parseBool(value)
		if err != nil {
			return domain.Predicate{}, errFormat("invalid boolean " + strconv.Quote(value))
		}
		kinds := map[string]domain.PredicateKind{
			"flagged":  domain.PredFlagged,
			"overdue":  domain.PredOverdue,
			"subtasks": domain.PredHasSubtasks,
			"repeat":   domain.PredHasRecurrence,
		}
		return domain.Predicate{Kind: kinds[key], Flag: flag}, nil
	default:
		return domain.Predicate{}, errFormat("unknown predicate " + strconv.Quote(key))
	}
}

func parseDatePredicate(key string, op byte, value string) (domain.Predicate, error) {
	ts, err := time.Parse(timeFmt, value)
	if err != nil {
		return domain.Predicate{}, errFormat("invalid predicate timestamp")
	}
	var kind domain.PredicateKind
	switch {
	case key == "due" && op == '<':
		kind = domain.PredDueBefore
	case key == "due" && op == '>':
		kind = domain.PredDueAfter
	case key == "defer" && op == '<':
		kind = domain.PredDeferBefore
	case key == "defer" && op == '>':
		kind = domain.PredDeferAfter
	case key == "done" && op == '>':
		kind = domain.PredCompletedAfter
	default:
		return domain.Predicate{}, errFormat("unknown predicate " + strconv.Quote(key+string(op)))
	}
	return domain.Predicate{Kind: kind, Time: ts.UTC()}, nil
}
