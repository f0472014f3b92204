// Package codec converts tasks and boards to and from their durable text
// representation: a metadata block of key/value pairs between --- fences,
// a blank line, and free-form body text. Encoding is deterministic and
// round-trip exact; decoding tolerates unknown keys for forward
// compatibility and never returns a partially populated entity.
package codec

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/plaintasks/plaintasks/internal/domain"
)

const (
	fence   = "---"
	timeFmt = time.RFC3339
)

// metaWriter accumulates the ordered metadata block.
type metaWriter struct {
	b strings.Builder
}

func (w *metaWriter) add(key, value string) {
	w.b.WriteString(key)
	w.b.WriteString(": ")
	w.b.WriteString(value)
	w.b.WriteByte('\n')
}

func (w *metaWriter) addTime(key string, t time.Time) {
	if !t.IsZero() {
		w.add(key, t.UTC().Format(timeFmt))
	}
}

func (w *metaWriter) addBool(key string, v bool) {
	if v {
		w.add(key, "true")
	}
}

func (w *metaWriter) addInt(key string, v int) {
	if v != 0 {
		w.add(key, strconv.Itoa(v))
	}
}

func (w *metaWriter) render(body string) string {
	return fence + "\n" + w.b.String() + fence + "\n\n" + body
}

// EncodeTask produces the durable text form of a task. Timestamps are
// written as RFC3339 UTC at second precision; callers are expected to
// hold UTC, second-truncated times (the store normalizes on mutation).
func EncodeTask(t *domain.Task) string {
	w := &metaWriter{}
	w.add("id", escapeValue(t.ID))
	w.add("kind", string(t.Kind))
	w.add("title", escapeValue(t.Title))
	w.add("status", string(t.Status))
	w.add("priority", string(t.Priority))
	if t.Project != "" {
		w.add("project", escapeValue(t.Project))
	}
	if t.Context != "" {
		w.add("context", escapeValue(t.Context))
	}
	w.addBool("flagged", t.Flagged)
	w.addInt("effort", t.Effort)
	w.addTime("due", t.Due)
	w.addTime("defer", t.Defer)
	if len(t.Tags) > 0 {
		w.add("tags", encodeList(t.Tags))
	}
	if t.Parent != "" {
		w.add("parent", escapeValue(t.Parent))
	}
	if len(t.Children) > 0 {
		w.add("children", encodeList(t.Children))
	}
	if t.TemplateID != "" {
		w.add("template", escapeValue(t.TemplateID))
	}
	w.addTime("occurrence", t.Occurrence)
	if t.Repeat != nil {
		w.add("repeat", encodeRecurrence(t.Repeat))
	}
	w.addTime("last_occurrence", t.LastOccurrence)
	w.addInt("occurrence_count", t.OccurrenceCount)
	if len(t.Positions) > 0 {
		w.add("positions", encodePositions(t.Positions))
	}
	if len(t.TimeEntries) > 0 {
		w.add("time_entries", encodeTimeEntries(t.TimeEntries))
	}
	if len(t.Attachments) > 0 {
		w.add("attachments", encodeAttachments(t.Attachments))
	}
	w.addBool("archived", t.Archived)
	w.addTime("created", t.Created)
	w.addTime("modified", t.Modified)
	w.addTime("completed", t.Completed)
	return w.render(t.Body)
}

// DecodeTask parses the durable text form of a task. Unknown keys are
// dropped; a missing required key or a value that fails coercion yields
// a *domain.MalformedRecordError naming the offending key.
func DecodeTask(text string) (*domain.Task, error) {
	meta, body, err := splitRecord(text)
	if err != nil {
		return nil, err
	}

	t := &domain.Task{Body: body}
	seen := make(map[string]bool, len(meta))
	for _, kv := range meta {
		seen[kv.key] = true
		if err := decodeTaskField(t, kv.key, kv.value); err != nil {
			return nil, err
		}
	}

	for _, req := range []string{"id", "kind", "title", "status", "priority", "created", "modified"} {
		if !seen[req] {
			return nil, &domain.MalformedRecordError{Key: req, Reason: "missing required key"}
		}
	}
	return t, nil
}

func decodeTaskField(t *domain.Task, key, value string) error {
	bad := func(reason string) error {
		return &domain.MalformedRecordError{Key: key, Reason: reason}
	}
	switch key {
	case "id":
		t.ID = unescapeValue(value)
		if t.ID == "" {
			return bad("empty identifier")
		}
	case "kind":
		t.Kind = domain.Kind(value)
		if !t.Kind.IsValid() {
			return bad("unknown kind " + strconv.Quote(value))
		}
	case "title":
		t.Title = unescapeValue(value)
	case "status":
		t.Status = domain.Status(value)
		if !t.Status.IsValid() {
			return bad("unknown status " + strconv.Quote(value))
		}
	case "priority":
		t.Priority = domain.Priority(value)
		if !t.Priority.IsValid() {
			return bad("unknown priority " + strconv.Quote(value))
		}
	case "project":
		t.Project = unescapeValue(value)
	case "context":
		t.Context = unescapeValue(value)
	case "flagged":
		v, err := parseBool(value)
		if err != nil {
			return bad(err.Error())
		}
		t.Flagged = v
	case "effort":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return bad("invalid effort")
		}
		t.Effort = n
	case "due":
		return parseTimeInto(&t.Due, key, value)
	case "defer":
		return parseTimeInto(&t.Defer, key, value)
	case "tags":
		t.Tags = decodeList(value)
	case "parent":
		t.Parent = unescapeValue(value)
	case "children":
		t.Children = decodeList(value)
	case "template":
		t.TemplateID = unescapeValue(value)
	case "occurrence":
		return parseTimeInto(&t.Occurrence, key, value)
	case "repeat":
		r, err := decodeRecurrence(value)
		if err != nil {
			return bad(err.Error())
		}
		t.Repeat = r
	case "last_occurrence":
		return parseTimeInto(&t.LastOccurrence, key, value)
	case "occurrence_count":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return bad("invalid occurrence count")
		}
		t.OccurrenceCount = n
	case "positions":
		p, err := decodePositions(value)
		if err != nil {
			return bad(err.Error())
		}
		t.Positions = p
	case "time_entries":
		entries, err := decodeTimeEntries(value)
		if err != nil {
			return bad(err.Error())
		}
		t.TimeEntries = entries
	case "attachments":
		atts, err := decodeAttachments(value)
		if err != nil {
			return bad(err.Error())
		}
		t.Attachments = atts
	case "archived":
		v, err := parseBool(value)
		if err != nil {
			return bad(err.Error())
		}
		t.Archived = v
	case "created":
		return parseTimeInto(&t.Created, key, value)
	case "modified":
		return parseTimeInto(&t.Modified, key, value)
	case "completed":
		return parseTimeInto(&t.Completed, key, value)
	default:
		// Unknown keys are dropped for forward compatibility.
	}
	return nil
}

type metaEntry struct {
	key   string
	value string
}

// splitRecord separates the metadata block from the body. The body is
// everything after the closing fence and one blank separator line,
// preserved verbatim.
func splitRecord(text string) ([]metaEntry, string, error) {
	if !strings.HasPrefix(text, fence+"\n") {
		return nil, "", &domain.MalformedRecordError{Reason: "missing opening fence"}
	}
	rest := text[len(fence)+1:]

	var meta []metaEntry
	for {
		line, remainder, found := strings.Cut(rest, "\n")
		if !found && line != fence {
			return nil, "", &domain.MalformedRecordError{Reason: "missing closing fence"}
		}
		if line == fence {
			body := remainder
			// One blank separator line belongs to the format, not the body.
			if strings.HasPrefix(body, "\n") {
				body = body[1:]
			}
			return meta, body, nil
		}
		rest = remainder

		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, "", &domain.MalformedRecordError{Reason: "metadata line missing ':'"}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, "", &domain.MalformedRecordError{Reason: "empty metadata key"}
		}
		meta = append(meta, metaEntry{key: key, value: strings.TrimPrefix(value, " ")})
	}
}

func parseTimeInto(dst *time.Time, key, value string) error {
	ts, err := time.Parse(timeFmt, value)
	if err != nil {
		return &domain.MalformedRecordError{Key: key, Reason: "invalid timestamp"}
	}
	*dst = ts.UTC()
	return nil
}

func parseBool(value string) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &strconv.NumError{Func: "ParseBool", Num: value, Err: strconv.ErrSyntax}
	}
}

// === value escaping ===

// escapeValue protects characters that are structurally significant in
// the record format. Unicode passes through unmodified.
func escapeValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeItem escapes a list element, additionally protecting the given
// separator characters.
func escapeItem(s, seps string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case strings.ContainsRune(seps, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescapeValue(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
			} else {
				b.WriteRune(r)
			}
			continue
		}
		switch r {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteRune(r)
		}
		escaped = false
	}
	return b.String()
}

// splitEscaped splits s on unescaped occurrences of sep. Elements remain
// escaped; callers unescape them individually. Empty input yields nil.
func splitEscaped(s string, sep rune) []string {
	if s == "" {
		return nil
	}
	return splitEscapedRune(s, sep)
}

// === list and composite field codecs ===

func encodeList(items []string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		escaped[i] = escapeItem(item, ",")
	}
	return strings.Join(escaped, ",")
}

func decodeList(value string) []string {
	parts := splitEscaped(value, ',')
	if len(parts) == 0 {
		return nil
	}
	items := make([]string, len(parts))
	for i, p := range parts {
		items[i] = unescapeValue(p)
	}
	return items
}

func encodePositions(positions map[string]domain.Position) string {
	slugs := make([]string, 0, len(positions))
	for slug := range positions {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	items := make([]string, len(slugs))
	for i, slug := range slugs {
		p := positions[slug]
		items[i] = escapeItem(slug, ",=") + "=" +
			strconv.FormatFloat(p.X, 'f', -1, 64) + ":" +
			strconv.FormatFloat(p.Y, 'f', -1, 64)
	}
	return strings.Join(items, ",")
}

func decodePositions(value string) (map[string]domain.Position, error) {
	parts := splitEscaped(value, ',')
	if len(parts) == 0 {
		return nil, nil
	}
	positions := make(map[string]domain.Position, len(parts))
	for _, part := range parts {
		slugPart, coords, ok := cutEscaped(part, '=')
		if !ok {
			return nil, errFormat("position missing '='")
		}
		xs, ys, ok := strings.Cut(coords, ":")
		if !ok {
			return nil, errFormat("position missing ':'")
		}
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if errX != nil || errY != nil {
			return nil, errFormat("invalid position coordinates")
		}
		positions[unescapeValue(slugPart)] = domain.Position{X: x, Y: y}
	}
	return positions, nil
}

func encodeTimeEntries(entries []domain.TimeEntry) string {
	items := make([]string, len(entries))
	for i, e := range entries {
		end := ""
		if !e.End.IsZero() {
			end = e.End.UTC().Format(timeFmt)
		}
		items[i] = e.Start.UTC().Format(timeFmt) + "/" + end
	}
	return strings.Join(items, ",")
}

func decodeTimeEntries(value string) ([]domain.TimeEntry, error) {
	parts := splitEscaped(value, ',')
	if len(parts) == 0 {
		return nil, nil
	}
	entries := make([]domain.TimeEntry, 0, len(parts))
	for _, part := range parts {
		startStr, endStr, ok := strings.Cut(part, "/")
		if !ok {
			return nil, errFormat("time entry missing '/'")
		}
		start, err := time.Parse(timeFmt, startStr)
		if err != nil {
			return nil, errFormat("invalid time entry start")
		}
		entry := domain.TimeEntry{Start: start.UTC()}
		if endStr != "" {
			end, err := time.Parse(timeFmt, endStr)
			if err != nil {
				return nil, errFormat("invalid time entry end")
			}
			entry.End = end.UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func encodeAttachments(atts []domain.Attachment) string {
	items := make([]string, len(atts))
	for i, a := range atts {
		items[i] = string(a.Kind) + "|" +
			escapeItem(a.Value, ",|") + "|" +
			escapeItem(a.Label, ",|")
	}
	return strings.Join(items, ",")
}

func decodeAttachments(value string) ([]domain.Attachment, error) {
	parts := splitEscaped(value, ',')
	if len(parts) == 0 {
		return nil, nil
	}
	atts := make([]domain.Attachment, 0, len(parts))
	for _, part := range parts {
		fields := splitEscapedRune(part, '|')
		if len(fields) != 3 {
			return nil, errFormat("attachment needs kind|value|label")
		}
		kind := domain.AttachmentKind(fields[0])
		if !kind.IsValid() {
			return nil, errFormat("unknown attachment kind " + strconv.Quote(fields[0]))
		}
		atts = append(atts, domain.Attachment{
			Kind:  kind,
			Value: unescapeValue(fields[1]),
			Label: unescapeValue(fields[2]),
		})
	}
	return atts, nil
}

// cutEscaped cuts around the first unescaped occurrence of sep.
func cutEscaped(s string, sep rune) (before, after string, found bool) {
	escaped := false
	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if r == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// splitEscapedRune splits on every unescaped occurrence of sep, keeping
// elements escaped.
func splitEscapedRune(s string, sep rune) []string {
	var parts []string
	rest := s
	for {
		before, after, found := cutEscaped(rest, sep)
		parts = append(parts, before)
		if !found {
			return parts
		}
		rest = after
	}
}

// === recurrence codec ===

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "sun",
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
}

func encodeRecurrence(r *domain.Recurrence) string {
	parts := []string{string(r.Freq), "interval=" + strconv.Itoa(r.Interval)}
	if len(r.Weekdays) > 0 {
		names := make([]string, len(r.Weekdays))
		for i, d := range r.Weekdays {
			names[i] = weekdayNames[d]
		}
		parts = append(parts, "days="+strings.Join(names, ","))
	}
	if r.LastDay {
		parts = append(parts, "day=last")
	} else if r.MonthDay > 0 {
		parts = append(parts, "day="+strconv.Itoa(r.MonthDay))
	}
	if !r.Until.IsZero() {
		parts = append(parts, "until="+r.Until.UTC().Format(timeFmt))
	}
	if r.Count > 0 {
		parts = append(parts, "count="+strconv.Itoa(r.Count))
	}
	return strings.Join(parts, " ")
}

func decodeRecurrence(value string) (*domain.Recurrence, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return nil, errFormat("empty recurrence")
	}
	r := &domain.Recurrence{Freq: domain.Frequency(fields[0]), Interval: 1}
	if !r.Freq.IsValid() {
		return nil, errFormat("unknown frequency " + strconv.Quote(fields[0]))
	}
	for _, field := range fields[1:] {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			return nil, errFormat("recurrence option missing '='")
		}
		switch key {
		case "interval":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return nil, errFormat("invalid interval")
			}
			r.Interval = n
		case "days":
			for _, name := range strings.Split(val, ",") {
				day, ok := weekdayByName(name)
				if !ok {
					return nil, errFormat("unknown weekday " + strconv.Quote(name))
				}
				r.Weekdays = append(r.Weekdays, day)
			}
		case "day":
			if val == "last" {
				r.LastDay = true
				break
			}
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 || n > 31 {
				return nil, errFormat("invalid day of month")
			}
			r.MonthDay = n
		case "until":
			ts, err := time.Parse(timeFmt, val)
			if err != nil {
				return nil, errFormat("invalid until date")
			}
			r.Until = ts.UTC()
		case "count":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return nil, errFormat("invalid count")
			}
			r.Count = n
		default:
			return nil, errFormat("unknown recurrence option " + strconv.Quote(key))
		}
	}
	return r, nil
}

func weekdayByName(name string) (time.Weekday, bool) {
	for day, n := range weekdayNames {
		if n == name {
			return day, true
		}
	}
	return 0, false
}

type formatError string

func (e formatError) Error() string { return string(e) }

func errFormat(reason string) error { return formatError(reason) }
