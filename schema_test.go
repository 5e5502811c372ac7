package turnkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query   string   `json:"query" desc:"Search query" required:"true"`
	Limit   int      `json:"limit" desc:"Maximum results"`
	Exact   bool     `json:"exact"`
	Sort    string   `json:"sort" enum:"relevance,date"`
	Filters []string `json:"filters" desc:"Optional filter expressions"`
	hidden  string   // unexported fields are skipped
}

var _ = searchArgs{}.hidden

func TestSchemaFor(t *testing.T) {
	raw, err := SchemaFor[searchArgs]()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, props, 5)

	query := props["query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search query", query["description"])

	limit := props["limit"].(map[string]any)
	assert.Equal(t, "integer", limit["type"])

	exact := props["exact"].(map[string]any)
	assert.Equal(t, "boolean", exact["type"])

	sort := props["sort"].(map[string]any)
	assert.Equal(t, []any{"relevance", "date"}, sort["enum"])

	filters := props["filters"].(map[string]any)
	assert.Equal(t, "array", filters["type"])
	items := filters["items"].(map[string]any)
	assert.Equal(t, "string", items["type"])

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"query"}, required)
}

func TestSchemaForNestedStruct(t *testing.T) {
	type inner struct {
		Name string `json:"name" required:"true"`
	}
	type outer struct {
		Target inner `json:"target" desc:"Nested target"`
	}

	raw, err := SchemaFor[outer]()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	target := schema["properties"].(map[string]any)["target"].(map[string]any)
	assert.Equal(t, "object", target["type"])
	assert.Equal(t, "Nested target", target["description"])

	nestedProps := target["properties"].(map[string]any)
	assert.Contains(t, nestedProps, "name")
	assert.Equal(t, []any{"name"}, target["required"])
}

func TestSchemaForNonStruct(t *testing.T) {
	_, err := SchemaFor[string]()
	assert.Error(t, err)

	_, err = SchemaFor[int]()
	assert.Error(t, err)
}

func TestMustSchemaForPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustSchemaFor[string]()
	})
}
