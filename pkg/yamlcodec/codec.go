// Package yamlcodec serializes store objects to and from YAML.
//
// The on-disk dialect is deliberately narrow: two-space indent, no anchors or
// aliases (repeated values are written out in full so version-control diffs
// stay readable), and a single extra scalar type for timestamps.
package yamlcodec

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Marshal encodes v as a YAML document with two-space indentation.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		enc.Close()
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml marshal: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a YAML document into v.
func Unmarshal(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yaml unmarshal: %w", err)
	}
	return nil
}

// Timestamp is a point in time stored as an RFC 3339 UTC scalar. It embeds
// time.Time so callers get the full time API on fields of this type.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp, truncated to whole seconds so
// a value survives a marshal/unmarshal round trip bit-for-bit.
func Now() Timestamp {
	return Timestamp{time.Now().UTC().Truncate(time.Second)}
}

// timestampLayouts are the accepted input formats, most specific first.
// Output always uses RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t Timestamp) MarshalYAML() (any, error) {
	return t.UTC().Format(time.RFC3339), nil
}

func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("timestamp: expected scalar, got %v", node.Kind)
	}
	s := strings.TrimSpace(node.Value)
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: cannot parse %q", s)
}

// IsZero reports whether the timestamp is the zero time.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero()
}
