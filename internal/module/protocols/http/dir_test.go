package http

import (
	"reflect"
	"testing"
)

func TestSplitCommaList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"php", []string{"php"}},
		{"php,bak,old", []string{"php", "bak", "old"}},
		{"php,,bak", []string{"php", "bak"}},
	}
	for _, tt := range tests {
		got := splitCommaList(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitCommaList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDir_NameAndConfigKey(t *testing.T) {
	m := &Dir{}
	if m.Name() != "dir" {
		t.Errorf("Name() = %q, want dir", m.Name())
	}
	if m.ConfigKey() != "fuzzer" {
		t.Errorf("ConfigKey() = %q, want fuzzer", m.ConfigKey())
	}
}
