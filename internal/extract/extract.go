// Package extract recovers a contact record from free-form model output.
//
// The match is deliberately greedy: the candidate span runs from the first
// '{' to the last '}' in the text. Replies carrying several separate objects
// or braces in surrounding prose therefore yield a span that does not parse
// and are reported as carrying no data.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var spanRe = regexp.MustCompile(`(?s)\{.*\}`)

// DefaultKeys are the field names the system prompt asks the model to emit.
var DefaultKeys = Keys{Name: "nombre", Email: "email", Comment: "comentario"}

type Keys struct {
	Name    string
	Email   string
	Comment string
}

// KeysFrom builds Keys from an ordered name, email, comment list.
func KeysFrom(list []string) Keys {
	if len(list) != 3 {
		return DefaultKeys
	}
	return Keys{Name: list[0], Email: list[1], Comment: list[2]}
}

type Record struct {
	Name    string
	Email   string
	Comment string
}

// FindJSON parses the greedy brace span of text as a JSON object.
func FindJSON(text string) (map[string]any, bool) {
	span := spanRe.FindString(text)
	if span == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

type Extractor struct {
	Keys Keys
}

func New(keys Keys) *Extractor {
	return &Extractor{Keys: keys}
}

// Extract returns a record only when all three keys are present.
func (e *Extractor) Extract(text string) (Record, bool) {
	obj, ok := FindJSON(text)
	if !ok {
		return Record{}, false
	}
	name, ok1 := obj[e.Keys.Name]
	email, ok2 := obj[e.Keys.Email]
	comment, ok3 := obj[e.Keys.Comment]
	if !ok1 || !ok2 || !ok3 {
		return Record{}, false
	}
	return Record{Name: stringify(name), Email: stringify(email), Comment: stringify(comment)}, true
}

// stringify renders non-string JSON values with their JSON text; null is empty.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}
