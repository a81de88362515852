package id_test

import (
	"encoding/json"
	"testing"

	"github.com/valuatech/taskq/id"
)

func TestNew_GeneratesPrefixedIDs(t *testing.T) {
	tests := []struct {
		prefix id.Prefix
	}{
		{id.PrefixJob},
		{id.PrefixWorkflow},
	}
	for _, tt := range tests {
		got := id.New(tt.prefix)
		if got.IsNil() {
			t.Errorf("New(%q) returned the nil ID", tt.prefix)
		}
		if got.Prefix() != tt.prefix {
			t.Errorf("New(%q).Prefix() = %q", tt.prefix, got.Prefix())
		}
	}
}

func TestNew_IDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		s := id.NewJobID().String()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate ID generated: %s", s)
		}
		seen[s] = struct{}{}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	orig := id.NewJobID()

	parsed, err := id.Parse(orig.String())
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", orig.String(), err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("round trip: got %q, want %q", parsed.String(), orig.String())
	}
}

func TestParse_RejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "not a typeid", "job_"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestParseWithPrefix_RejectsWrongPrefix(t *testing.T) {
	wf := id.NewWorkflowID()
	if _, err := id.ParseJobID(wf.String()); err == nil {
		t.Errorf("ParseJobID(%q) succeeded, want prefix mismatch error", wf.String())
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	orig := id.NewJobID()

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded id.ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded.String() != orig.String() {
		t.Errorf("JSON round trip: got %q, want %q", decoded.String(), orig.String())
	}
}

func TestNil_MarshalsToEmpty(t *testing.T) {
	data, err := id.Nil.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText error: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Nil.MarshalText() = %q, want empty", data)
	}
}
