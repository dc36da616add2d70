package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"score\": 90, \"summary\": \"solid\"}\n```"

	payload, err := Payload(raw)
	require.NoError(t, err)

	assert.Equal(t, float64(90), payload["score"])
	assert.Equal(t, "solid", payload["summary"])
}

func TestPayloadHandlesBarePayload(t *testing.T) {
	payload, err := Payload(`  {"ok": true}  `)
	require.NoError(t, err)
	assert.Equal(t, true, payload["ok"])
}

func TestPayloadMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "prose", raw: "Sorry, I can't help with that."},
		{name: "empty", raw: "   "},
		{name: "fences only", raw: "```json\n```"},
		{name: "truncated object", raw: `{"score": 90,`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Payload(tc.raw)
			require.Error(t, err)

			var extractErr *Error
			require.True(t, errors.As(err, &extractErr))
			assert.Equal(t, ReasonMalformed, extractErr.Reason)
		})
	}
}

func TestPayloadIdempotent(t *testing.T) {
	raw := "```json\n{\"score\": 75, \"pros\": [\"clear answers\"], \"cons\": [\"short examples\"]}\n```"

	first, err := Payload(raw)
	require.NoError(t, err)

	canonical, err := json.Marshal(first)
	require.NoError(t, err)

	second, err := Payload(string(canonical))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeWeaklyTyped(t *testing.T) {
	var out struct {
		Score int      `json:"score"`
		Tags  []string `json:"tags"`
	}

	err := Decode(map[string]any{"score": "88", "tags": []any{"go"}}, &out)
	require.NoError(t, err)

	assert.Equal(t, 88, out.Score)
	assert.Equal(t, []string{"go"}, out.Tags)
}

func TestParse(t *testing.T) {
	var out struct {
		Recommendation string `json:"recommendation"`
		Score          int    `json:"score"`
	}

	err := Parse("```\n{\"recommendation\": \"Hire\", \"score\": 82}\n```", &out)
	require.NoError(t, err)

	assert.Equal(t, "Hire", out.Recommendation)
	assert.Equal(t, 82, out.Score)
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "no fences", input: `{"a":1}`, expect: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", expect: `{"a":1}`},
		{name: "plain fence", input: "```\n{\"a\":1}\n```", expect: `{"a":1}`},
		{name: "stray backticks", input: "`{\"a\":1}`", expect: `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, StripFences(tc.input))
		})
	}
}
