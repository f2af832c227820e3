package models

import (
	"encoding/json"
	"fmt"
)

// InvalidText is what a SanitizedText renders when the source value was not
// a string.
const InvalidText = "<invalid title>"

// SanitizedText is a presentation string taken from front matter. It either
// carries the original string or marks the source value as invalid.
type SanitizedText struct {
	text    string
	invalid bool
}

// Text wraps a valid string.
func Text(s string) SanitizedText { return SanitizedText{text: s} }

// Invalid marks a value that was present but not a string.
func Invalid() SanitizedText { return SanitizedText{invalid: true} }

// Valid reports whether the source value was a string.
func (s SanitizedText) Valid() bool { return !s.invalid }

// String returns the text or the invalid marker.
func (s SanitizedText) String() string {
	if s.invalid {
		return InvalidText
	}
	return s.text
}

// MarshalJSON implements json.Marshaler.
func (s SanitizedText) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler. The marker decodes as invalid.
func (s *SanitizedText) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("models: decode text: %w", err)
	}
	if str == InvalidText {
		*s = Invalid()
		return nil
	}
	*s = Text(str)
	return nil
}
