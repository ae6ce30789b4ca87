// Package normalize reconciles the envelope shapes the backend uses for the same
// logical endpoint family into one canonical list or object.
//
// Each shape is an extractor tried in priority order; the first match wins and no
// extractor ever panics on unexpected input.
package normalize

import (
	"bizdash/internal/decode"
)

// Extractor pulls a list out of one envelope shape.
type Extractor func(v any) ([]any, bool)

// ObjectExtractor pulls a single object out of one envelope shape.
type ObjectExtractor func(v any) (map[string]any, bool)

// ResponseBodyKeys are the wrapper fields some endpoints put encoded payloads under.
var ResponseBodyKeys = []string{"ResponseBody", "Response Body"}

// BareArray matches a payload that already is the list.
func BareArray(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

// ArrayField matches an object with an array under key.
func ArrayField(key string) Extractor {
	return func(v any) ([]any, bool) {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		arr, ok := obj[key].([]any)
		return arr, ok
	}
}

// ResponseBodyList matches a ResponseBody wrapper whose value, once decoded, yields an
// array through any of the non-wrapper extractors.
func ResponseBodyList(inner []Extractor) Extractor {
	return func(v any) ([]any, bool) {
		wrapped, ok := responseBody(v)
		if !ok {
			return nil, false
		}
		return firstList(wrapped, inner)
	}
}

// EncodedString matches a payload that decoded to a string which is itself JSON.
func EncodedString(inner []Extractor) Extractor {
	return func(v any) ([]any, bool) {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return firstList(decode.Decode(s), inner)
	}
}

// ListExtractors returns the extractor chain for list endpoints:
// bare array, data, items, each domain key, ResponseBody, then string-encoded JSON.
func ListExtractors(domainKeys ...string) []Extractor {
	direct := []Extractor{BareArray, ArrayField("data"), ArrayField("items")}
	for _, key := range domainKeys {
		direct = append(direct, ArrayField(key))
	}
	return append(direct,
		ResponseBodyList(direct),
		EncodedString(direct),
	)
}

// List returns the canonical list inside v. It never returns nil: unmatched shapes
// yield an empty slice so callers can render an empty state.
func List(v any, domainKeys ...string) []any {
	return ListWith(v, ListExtractors(domainKeys...))
}

// ListWith runs a custom extractor chain.
func ListWith(v any, extractors []Extractor) []any {
	if arr, ok := firstList(v, extractors); ok && arr != nil {
		return arr
	}
	return []any{}
}

// Object returns v when it carries at least one expected field, otherwise the first
// unwrapped candidate (data object, ResponseBody) that does. Anything else yields an
// empty map so field lookups resolve to nothing instead of failing.
func Object(v any, expected ...string) map[string]any {
	for _, extract := range objectExtractors() {
		obj, ok := extract(v)
		if ok && hasAny(obj, expected) {
			return obj
		}
	}
	return map[string]any{}
}

// Record locates a single entity echoed back by a mutation: the payload itself, a
// data/item wrapper, or a ResponseBody wrapper. The candidate must carry one of idKeys.
func Record(v any, idKeys ...string) (map[string]any, bool) {
	for _, extract := range objectExtractors() {
		obj, ok := extract(v)
		if !ok {
			continue
		}
		if _, found := Field(obj, idKeys...); found {
			return obj, true
		}
	}
	return nil, false
}

func objectExtractors() []ObjectExtractor {
	self := func(v any) (map[string]any, bool) {
		obj, ok := v.(map[string]any)
		return obj, ok
	}
	field := func(key string) ObjectExtractor {
		return func(v any) (map[string]any, bool) {
			obj, ok := v.(map[string]any)
			if !ok {
				return nil, false
			}
			inner, ok := obj[key].(map[string]any)
			return inner, ok
		}
	}
	direct := []ObjectExtractor{self, field("data"), field("item")}
	wrapped := func(v any) (map[string]any, bool) {
		inner, ok := responseBody(v)
		if !ok {
			return nil, false
		}
		for _, extract := range direct {
			if obj, ok := extract(inner); ok {
				return obj, true
			}
		}
		return nil, false
	}
	encoded := func(v any) (map[string]any, bool) {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		obj, ok := decode.Decode(s).(map[string]any)
		return obj, ok
	}
	return append(direct, wrapped, encoded)
}

// responseBody returns the decoded value under a ResponseBody wrapper key.
func responseBody(v any) (any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, key := range ResponseBodyKeys {
		raw, present := obj[key]
		if !present || raw == nil {
			continue
		}
		if s, isString := raw.(string); isString {
			decoded := decode.Decode(s)
			if decoded == nil {
				continue
			}
			return decoded, true
		}
		return raw, true
	}
	return nil, false
}

func firstList(v any, extractors []Extractor) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	for _, extract := range extractors {
		if arr, ok := extract(v); ok {
			return arr, true
		}
	}
	return nil, false
}

func hasAny(obj map[string]any, keys []string) bool {
	if len(keys) == 0 {
		return len(obj) > 0
	}
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}
