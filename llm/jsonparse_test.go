package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Agent string  `json:"agent"`
		Score float64 `json:"score"`
	}

	tests := []struct {
		name string
		text string
		want payload
	}{
		{"plain", `{"agent":"a","score":1}`, payload{"a", 1}},
		{"json fence", "Here you go:\n```json\n{\"agent\":\"b\",\"score\":2}\n```\nthanks", payload{"b", 2}},
		{"bare fence", "```\n{\"agent\":\"c\",\"score\":3}\n```", payload{"c", 3}},
		{"other language fence", "```javascript\n{\"agent\":\"d\",\"score\":4}\n```", payload{"d", 4}},
		{"embedded", `I pick {"agent":"e","score":5} because reasons`, payload{"e", 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			require.NoError(t, ExtractJSON(tt.text, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	var got map[string]any
	assert.ErrorIs(t, ExtractJSON("no structured output here", &got), ErrNoJSON)
	assert.ErrorIs(t, ExtractJSON("", &got), ErrNoJSON)
	assert.ErrorIs(t, ExtractJSON("} backwards {", &got), ErrNoJSON)
}
