package tx

import (
	"testing"
)

func TestParsePartitionKey(t *testing.T) {
	tests := []struct {
		literal, typ string
		want         any
		wantErr      bool
	}{
		{"mk2", "STRING", "mk2", false},
		{"42", "integer", int64(42), false},
		{"-9007199254740993", "INTEGER", int64(-9007199254740993), false},
		{"true", "BOOLEAN", true, false},
		{"4x", "INTEGER", nil, true},
		{"yes", "BOOLEAN", nil, true},
		{"1.5", "DOUBLE", nil, true},
		{"a", "NUMBER", nil, true},
	}
	for _, tt := range tests {
		got, err := ParsePartitionKey(tt.literal, tt.typ)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePartitionKey(%q, %q) should fail", tt.literal, tt.typ)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePartitionKey(%q, %q): %v", tt.literal, tt.typ, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePartitionKey(%q, %q) = %v (%T), want %v", tt.literal, tt.typ, got, got, tt.want)
		}
	}
}
