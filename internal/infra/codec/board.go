package codec

import (
	"strconv"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// EncodeBoard produces the durable text form of a board. Boards carry no
// body text; everything lives in the metadata block.
func EncodeBoard(b *domain.Board) string {
	w := &metaWriter{}
	w.add("slug", escapeValue(b.Slug))
	w.add("kind", string(b.Kind))
	w.add("title", escapeValue(b.Title))
	w.add("layout", string(b.Layout))
	if !b.Filter.IsEmpty() {
		w.add("filter", EncodeFilter(b.Filter))
	}
	if len(b.Columns) > 0 {
		w.add("columns", encodeList(b.Columns))
	}
	w.addBool("hidden", b.Hidden)
	w.addInt("auto_hide_days", b.AutoHideDays)
	w.addInt("order", b.Order)
	w.addTime("created", b.Created)
	w.addTime("modified", b.Modified)
	w.addTime("accessed", b.Accessed)
	return w.render("")
}

// DecodeBoard parses the durable text form of a board. Body text after
// the metadata block is tolerated and dropped.
func DecodeBoard(text string) (*domain.Board, error) {
	meta, _, err := splitRecord(text)
	if err != nil {
		return nil, err
	}

	b := &domain.Board{}
	seen := make(map[string]bool, len(meta))
	for _, kv := range meta {
		seen[kv.key] = true
		if err := decodeBoardField(b, kv.key, kv.value); err != nil {
			return nil, err
		}
	}

	for _, req := range []string{"slug", "kind", "title", "layout", "created", "modified"} {
		if !seen[req] {
			return nil, &domain.MalformedRecordError{Key: req, Reason: "missing required key"}
		}
	}
	return b, nil
}

func decodeBoardField(b *domain.Board, key, value string) error {
	bad := func(reason string) error {
		return &domain.MalformedRecordError{Key: key, Reason: reason}
	}
	switch key {
	case "slug":
		b.Slug = unescapeValue(value)
		if b.Slug == "" {
			return bad("empty slug")
		}
	case "kind":
		b.Kind = domain.BoardKind(value)
		if !b.Kind.IsValid() {
			return bad("unknown board kind " + strconv.Quote(value))
		}
	case "title":
		b.Title = unescapeValue(value)
	case "layout":
		b.Layout = domain.Layout(value)
		if !b.Layout.IsValid() {
			return bad("unknown layout " + strconv.Quote(value))
		}
	case "filter":
		f, err := ParseFilter(value)
		if err != nil {
			return bad(err.Error())
		}
		b.Filter = f
	case "columns":
		b.Columns = decodeList(value)
	case "hidden":
		v, err := parseBool(value)
		if err != nil {
			return bad("invalid boolean")
		}
		b.Hidden = v
	case "auto_hide_days":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return bad("invalid auto-hide days")
		}
		b.AutoHideDays = n
	case "order":
		n, err := strconv.Atoi(value)
		if err != nil {
			return bad("invalid order")
		}
		b.Order = n
	case "created":
		return parseTimeInto(&b.Created, key, value)
	case "modified":
		return parseTimeInto(&b.Modified, key, value)
	case "accessed":
		return parseTimeInto(&b.Accessed, key, value)
	default:
		// Unknown keys are dropped for forward compatibility.
	}
	return nil
}
