package yamlcodec

import (
	"strings"
	"testing"
	"time"
)

func TestMarshalIndentAndNoAliases(t *testing.T) {
	shared := map[string]any{"k": "v"}
	doc := map[string]any{
		"first":  shared,
		"second": shared,
	}

	out, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text := string(out)

	if strings.Contains(text, "&") || strings.Contains(text, "*") {
		t.Fatalf("output contains anchors/aliases:\n%s", text)
	}
	if !strings.Contains(text, "  k: v") {
		t.Fatalf("expected two-space indent, got:\n%s", text)
	}
	// Both occurrences written out in full.
	if strings.Count(text, "k: v") != 2 {
		t.Fatalf("expected repeated value to be expanded twice:\n%s", text)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	type doc struct {
		Created Timestamp `yaml:"created"`
	}

	orig := doc{Created: Now()}
	data, err := Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), orig.Created.Format(time.RFC3339)) {
		t.Fatalf("timestamp not serialized as RFC 3339: %s", data)
	}

	var back doc
	if err := Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Created.Equal(orig.Created.Time) {
		t.Fatalf("round trip mismatch: %v != %v", back.Created, orig.Created)
	}
}

func TestTimestampAcceptsDateOnly(t *testing.T) {
	var ts Timestamp
	if err := Unmarshal([]byte("2024-06-01"), &ts); err != nil {
		t.Fatalf("Unmarshal date-only: %v", err)
	}
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("parsed %v, want %v", ts.Time, want)
	}
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts Timestamp
	if err := Unmarshal([]byte(`"not a time"`), &ts); err == nil {
		t.Fatal("expected parse error")
	}
}
