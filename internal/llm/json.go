package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// StripFences removes a leading ```json (or ```) fence and a trailing ``` fence
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeObject strictly decodes a model response holding one JSON object into v.
// Trailing data after the object is rejected.
func DecodeObject(text string, v any) error {
	body := StripFences(text)
	if !strings.HasPrefix(body, "{") {
		return fmt.Errorf("response is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("decode response: trailing data after object")
	}
	return nil
}
