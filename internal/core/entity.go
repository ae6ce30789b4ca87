package core

import (
	"strconv"

	"github.com/spf13/cast"

	"bizdash/internal/normalize"
)

// DefaultIDKeys is the identifier fallback chain for entities without a domain key.
var DefaultIDKeys = []string{"id", "_id", "ID"}

// Entity is a client-side mirror of one backend record. Only the identifier is
// guaranteed; every other field is best-effort.
type Entity map[string]any

// ID resolves the identifier through keys (DefaultIDKeys when empty) and renders it
// as a string, so 7, "7" and 7.0 all compare equal.
func (e Entity) ID(keys ...string) string {
	if len(keys) == 0 {
		keys = DefaultIDKeys
	}
	v, ok := normalize.Field(e, keys...)
	if !ok {
		return ""
	}
	return IDString(v)
}

// IDString renders an identifier value as a string.
func IDString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case nil:
		return ""
	default:
		return cast.ToString(v)
	}
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	return Entity(cloneValue(map[string]any(e)).(map[string]any))
}

// With returns a copy of e with fields overwritten by patch.
func (e Entity) With(patch map[string]any) Entity {
	out := e.Clone()
	if out == nil {
		out = Entity{}
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneList deep-copies a list of entities. The result is never nil.
func CloneList(list []Entity) []Entity {
	out := make([]Entity, len(list))
	for i, e := range list {
		out[i] = e.Clone()
	}
	return out
}

// Entities converts normalized records into entities, dropping anything that is not
// an object or lacks an identifier.
func Entities(items []any, idKeys ...string) []Entity {
	out := make([]Entity, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		e := Entity(obj)
		if e.ID(idKeys...) == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// IndexOf returns the position of the entity with id, or -1.
func IndexOf(list []Entity, id string, idKeys ...string) int {
	for i, e := range list {
		if e.ID(idKeys...) == id {
			return i
		}
	}
	return -1
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Entity:
		return Entity(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
