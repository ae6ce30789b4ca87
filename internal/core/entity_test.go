package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityID(t *testing.T) {
	tests := []struct {
		name string
		e    Entity
		keys []string
		want string
	}{
		{"float id", Entity{"id": float64(7)}, nil, "7"},
		{"string id", Entity{"id": "7"}, nil, "7"},
		{"fractional id", Entity{"id": 7.5}, nil, "7.5"},
		{"fallback key", Entity{"invoiceNumber": "INV-9"}, []string{"id", "invoiceNumber"}, "INV-9"},
		{"null id falls through", Entity{"id": nil, "employeeId": float64(4)}, []string{"id", "employeeId"}, "4"},
		{"missing", Entity{"name": "x"}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.ID(tt.keys...))
		})
	}
}

func TestEntityClone_IsDeep(t *testing.T) {
	orig := Entity{
		"id":   float64(1),
		"tags": []any{"a", map[string]any{"k": "v"}},
		"meta": map[string]any{"owner": "x"},
	}

	cp := orig.Clone()
	cp["meta"].(map[string]any)["owner"] = "y"
	cp["tags"].([]any)[1].(map[string]any)["k"] = "changed"
	cp["id"] = float64(2)

	assert.Equal(t, "x", orig["meta"].(map[string]any)["owner"])
	assert.Equal(t, "v", orig["tags"].([]any)[1].(map[string]any)["k"])
	assert.Equal(t, float64(1), orig["id"])
}

func TestEntityWith(t *testing.T) {
	orig := Entity{"id": float64(3), "projectStatus": "NOT_STARTED"}

	got := orig.With(map[string]any{"projectStatus": "IN_PROGRESS"})

	assert.Equal(t, "IN_PROGRESS", got["projectStatus"])
	assert.Equal(t, "NOT_STARTED", orig["projectStatus"])
}

func TestEntities_DropsRecordsWithoutID(t *testing.T) {
	items := []any{
		map[string]any{"id": float64(1)},
		map[string]any{"name": "no id"},
		"stray string",
		map[string]any{"projectId": "p2"},
	}

	got := Entities(items, "id", "projectId")

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID("id", "projectId"))
	assert.Equal(t, "p2", got[1].ID("id", "projectId"))
	assert.Equal(t, 1, IndexOf(got, "p2", "id", "projectId"))
	assert.Equal(t, -1, IndexOf(got, "nope"))
}

func TestCloneList_NeverNil(t *testing.T) {
	assert.NotNil(t, CloneList(nil))
}
