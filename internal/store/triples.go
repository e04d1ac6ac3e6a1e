package store

import (
	"strings"

	"github.com/ppiankov/relmark/internal/model"
)

// Triple is a relation resolved to the surface text of its markables
type Triple struct {
	Document  string `json:"document,omitempty"`
	ViewID    string `json:"view"`
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Label     string `json:"label"`
}

// Triples resolves every GenericRelation in doc. Relations whose markables
// cannot be found in the same view are skipped.
func Triples(doc *model.Document) []Triple {
	text := []rune(doc.Text())
	var out []Triple

	for _, v := range doc.Views() {
		for _, rel := range v.OfType(model.TypeGenericRelation) {
			args := ArgumentIDs(rel)
			if len(args) != 2 {
				continue
			}
			predID, _ := rel.Feature(model.FeatureRelation)
			pid, _ := predID.(string)

			subject, ok1 := markableText(v, text, args[0])
			object, ok2 := markableText(v, text, args[1])
			predicate, ok3 := markableText(v, text, pid)
			if !ok1 || !ok2 || !ok3 {
				continue
			}

			label, _ := rel.Feature(model.FeatureLabel)
			l, _ := label.(string)
			out = append(out, Triple{
				ViewID:    v.ID,
				ID:        rel.ID,
				Subject:   subject,
				Predicate: predicate,
				Object:    object,
				Label:     l,
			})
		}
	}
	return out
}

// ArgumentIDs reads a relation's argument ids from either the list form or
// the legacy "[m_1_2, m_1_3]" string form
func ArgumentIDs(rel *model.Annotation) []string {
	raw, ok := rel.Feature(model.FeatureArguments)
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			ids = append(ids, s)
		}
		return ids
	case string:
		inner := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(v), "["), "]")
		if strings.TrimSpace(inner) == "" {
			return nil
		}
		parts := strings.Split(inner, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}

func markableText(v *model.View, text []rune, id string) (string, bool) {
	a, ok := v.Find(id)
	if !ok || a.Span == nil || a.Span.End > len(text) || !a.Span.Valid() {
		return "", false
	}
	return string(text[a.Span.Start:a.Span.End]), true
}
