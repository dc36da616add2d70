// Package extract turns free-form model output into structured values. Models
// are asked for a bare JSON object but routinely wrap it in markdown fences,
// so extraction strips known fence markers before parsing.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ReasonMalformed marks payloads that could not be parsed at all.
const ReasonMalformed = "malformed"

// Error is returned when a structured payload cannot be extracted from raw
// model text. Callers must treat it as terminal for the interaction.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extract: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Payload strips code fences around the raw text and parses the remainder as
// a JSON object. No semantic validation of field values is performed here.
func Payload(raw string) (map[string]any, error) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return nil, &Error{Reason: ReasonMalformed, Err: fmt.Errorf("empty payload")}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, &Error{Reason: ReasonMalformed, Err: err}
	}

	return data, nil
}

// Decode maps a parsed payload onto the provided struct. Decoding is weakly
// typed so a model answering `"score": "88"` still fills an int field.
func Decode(payload map[string]any, out any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return &Error{Reason: ReasonMalformed, Err: err}
	}

	if err := decoder.Decode(payload); err != nil {
		return &Error{Reason: ReasonMalformed, Err: err}
	}

	return nil
}

// Parse combines Payload and Decode for callers that want a typed value in
// one step.
func Parse(raw string, out any) error {
	payload, err := Payload(raw)
	if err != nil {
		return err
	}

	return Decode(payload, out)
}

// StripFences removes markdown code fence markers and surrounding whitespace
// from the raw model output.
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
