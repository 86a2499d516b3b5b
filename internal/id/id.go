// Package id normalizes record identifiers at the Gateway boundary.
package id

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Flex decodes an identifier sent either as a JSON number or a JSON string.
// Records carry ids as strings internally regardless of the backend's choice.
type Flex string

func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string, got %s", data)
	}
	*f = Flex(n.String())
	return nil
}

func (f Flex) String() string { return string(f) }

// Wire renders an internal id for a request body: integer ids go out as
// JSON numbers so numeric-keyed backends accept them, anything else as a
// string. Empty ids are omitted.
func Wire(s string) any {
	if s == "" {
		return nil
	}
	if IsNumeric(s) {
		return json.Number(s)
	}
	return s
}

// IsNumeric reports whether s is a base-10 integer.
func IsNumeric(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// NewRequestID returns a fresh id for correlating one Gateway request in logs.
func NewRequestID() string {
	return uuid.NewString()
}

// Next returns the next sequential integer id after the numeric ids in
// existing, starting at 1. Non-numeric ids are ignored.
func Next(existing []string) string {
	var highest int64
	for _, s := range existing {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	return strconv.FormatInt(highest+1, 10)
}
