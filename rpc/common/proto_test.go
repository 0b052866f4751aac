package common

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestOperationTable(t *testing.T) {
	table := NewOperationTable()

	tests := []struct {
		op         Operation
		gen        Generation
		wantPath   string
		wantOK     bool
		wantResult bool
	}{
		{OpGetRow, Generation2013, "/GetRow", true, true},
		{OpPutRow, Generation2013, "/PutRow", true, false},
		{OpPutRow, GenerationLegacy, "/PutData", true, false},
		{OpDeleteRow, GenerationLegacy, "/DeleteData", true, false},
		{OpMultiGetRow, GenerationLegacy, "", false, true},
		{OpBatchModifyRow, Generation2013, "", false, false},
		{OpBatchModifyRow, GenerationLegacy, "/BatchModifyData", true, false},
		{OpMultiPutRow, Generation2013, "/MultiPutRow", true, true},
		{OpCreateTable, Generation2013, "/CreateTable", true, false},
		{OpGetRowsByOffset, GenerationLegacy, "/GetRowsByOffset", true, true},
		{OpGetRowsByOffset, Generation2013, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.op.String()+"/"+string(tt.gen), func(t *testing.T) {
			path, ok := table.Path(tt.op, tt.gen)
			if path != tt.wantPath || ok != tt.wantOK {
				t.Errorf("Path() = %q, %v; want %q, %v", path, ok, tt.wantPath, tt.wantOK)
			}
			spec, ok := table.Spec(tt.op)
			if !ok || spec.HasResponse != tt.wantResult {
				t.Errorf("unexpected spec %+v", spec)
			}
			if tt.wantOK {
				back, ok := table.Lookup(path[1:], tt.gen)
				if !ok || back != tt.op {
					t.Errorf("Lookup(%q) = %v, %v", path[1:], back, ok)
				}
			}
		})
	}

	if spec, _ := table.Spec(OpMultiGetRow); spec.MaxRows != 100 {
		t.Errorf("unexpected multi get ceiling %d", spec.MaxRows)
	}
}

func TestOperationJSON(t *testing.T) {
	for op := OpCreateTableGroup; op <= OpGetRowsByOffset; op++ {
		b, err := json.Marshal(op)
		if err != nil {
			t.Fatal(err)
		}
		var back Operation
		if err := json.Unmarshal(b, &back); err != nil || back != op {
			t.Errorf("operation %s did not survive JSON: %v, %v", op, back, err)
		}
	}
	var op Operation
	if err := json.Unmarshal([]byte(`"Nope"`), &op); err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestClientConfigDefaults(t *testing.T) {
	c := DefaultClientConfig()
	if c.Endpoints[0] != DefaultEndpoint || c.APIVersion != "2013-05-10" || c.SignatureMethod != "HmacSHA1" || c.SignatureVersion != "1" {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.Timeout().Milliseconds() != 5000 || c.DNSCacheTime().Milliseconds() != 10000 {
		t.Errorf("unexpected durations %v, %v", c.Timeout(), c.DNSCacheTime())
	}
	if err := c.Validate(); err == nil {
		t.Error("missing credentials must fail validation")
	}
	c.AccessKeyID, c.AccessKeySecret = "id", "secret"
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error %v", err)
	}

	legacy := ClientConfig{Generation: GenerationLegacy}
	legacy.ApplyDefaults()
	if legacy.APIVersion != "1" || legacy.Generation.Precision() == Generation2013.Precision() {
		t.Errorf("unexpected legacy defaults %+v", legacy)
	}
}

func TestParseGeneration(t *testing.T) {
	for in, want := range map[string]Generation{"": Generation2013, "2013-05-10": Generation2013, "LEGACY": GenerationLegacy} {
		got, err := ParseGeneration(in)
		if err != nil || got != want {
			t.Errorf("ParseGeneration(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseGeneration("2014"); err == nil {
		t.Error("expected error")
	}
}

func TestConfigStringMasksSecrets(t *testing.T) {
	c := DefaultClientConfig()
	c.AccessKeySecret = "supersecret"
	if s := c.String(); !strings.Contains(s, "*********et") || strings.Contains(s, "supersecret") {
		t.Errorf("secret not masked:\n%s", s)
	}
}
