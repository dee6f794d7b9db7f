// Package resources turns the course "resources" field into an ordered list
// of display items. The service stores that field as a JSON-encoded string,
// a newline/comma delimited string or a real array depending on how the
// course was created, so decoding is tolerant and normalization never fails.
package resources

import (
	"encoding/json"
	"regexp"
	"strings"
)

const NoResourcesMessage = "No resources available."

type Kind int

const (
	Absent Kind = iota
	Text
	List
)

// Raw is the resources field as it arrived on the wire.
type Raw struct {
	Kind Kind
	Text string
	List []any
}

func FromString(s string) Raw { return Raw{Kind: Text, Text: s} }

func FromList(items ...any) Raw { return Raw{Kind: List, List: items} }

func FromStrings(items ...string) Raw {
	list := make([]any, len(items))
	for i, s := range items {
		list[i] = s
	}
	return Raw{Kind: List, List: list}
}

// UnmarshalJSON accepts null, a string or an array of anything. Other
// shapes (numbers, objects) decode as Absent instead of failing the
// enclosing document.
func (r *Raw) UnmarshalJSON(b []byte) error {
	*r = Raw{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*r = FromString(s)
	case '[':
		var items []any
		if err := json.Unmarshal(b, &items); err != nil {
			return nil
		}
		*r = Raw{Kind: List, List: items}
	}
	return nil
}

func (r Raw) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case Text:
		return json.Marshal(r.Text)
	case List:
		if r.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.List)
	default:
		return []byte("null"), nil
	}
}

func (r Raw) IsEmpty() bool {
	switch r.Kind {
	case Text:
		return r.Text == ""
	case List:
		return len(r.List) == 0
	default:
		return true
	}
}

// Item is one display entry: a hyperlink when the trimmed text starts
// with "http", plain text otherwise.
type Item struct {
	Text string
	Link bool
}

var delimiters = regexp.MustCompile(`[\n,]+`)

// Normalize converts r into display items. It never panics and never
// returns an error; unusable input yields an empty slice.
func Normalize(r Raw) []Item {
	if r.IsEmpty() {
		return []Item{}
	}

	var texts []string
	switch r.Kind {
	case Text:
		texts = fromString(r.Text)
	case List:
		texts = fromList(r.List)
	}

	out := make([]Item, 0, len(texts))
	for _, t := range texts {
		out = append(out, Item{
			Text: t,
			Link: strings.HasPrefix(strings.TrimSpace(t), "http"),
		})
	}
	return out
}

// Strings is Normalize without the link flag.
func Strings(r Raw) []string {
	items := Normalize(r)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

func fromString(s string) []string {
	var parsed []string
	if err := json.Unmarshal([]byte(s), &parsed); err == nil && parsed != nil {
		return parsed
	}

	pieces := delimiters.Split(s, -1)
	for i, p := range pieces {
		pieces[i] = strings.TrimSpace(p)
	}
	return pieces
}

// fromList keeps positions: anything that is not a string becomes "".
func fromList(items []any) []string {
	out := make([]string, len(items))
	for i, it := range items {
		s, _ := it.(string)
		out[i] = strings.TrimSpace(s)
	}
	return out
}
