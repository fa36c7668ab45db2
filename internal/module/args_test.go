package module

import (
	"reflect"
	"testing"
)

func TestFilterModuleArgs_DropsGlobalFlagsAndTheirValues(t *testing.T) {
	argv := []string{"-p", "80,443", "--wordlist", "common.txt", "--debug"}
	globalLong := map[string]bool{"debug": true}
	globalShort := map[string]bool{"p": true}
	specs := []OptionSpec{{Name: "wordlist", Type: "string"}}

	got := FilterModuleArgs(argv, globalLong, globalShort, specs)
	want := []string{"--wordlist", "common.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterModuleArgs() = %v, want %v", got, want)
	}
}

func TestFilterModuleArgs_ShortOptionGlue(t *testing.T) {
	argv := []string{"-wcommon.txt"}
	specs := []OptionSpec{{Name: "w", Type: "string"}}

	got := FilterModuleArgs(argv, nil, nil, specs)
	want := []string{"-w", "common.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterModuleArgs() = %v, want %v", got, want)
	}
}

func TestFilterModuleArgs_LongFlagWithEquals(t *testing.T) {
	argv := []string{"--threads=10", "extra-positional"}
	specs := []OptionSpec{{Name: "threads", Type: "int"}}

	got := FilterModuleArgs(argv, nil, nil, specs)
	want := []string{"--threads=10"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterModuleArgs() = %v, want %v", got, want)
	}
}

func TestFilterModuleArgs_DropsUndeclaredFlags(t *testing.T) {
	argv := []string{"--unknown-flag", "value", "--threads", "5"}
	specs := []OptionSpec{{Name: "threads", Type: "int"}}

	got := FilterModuleArgs(argv, nil, nil, specs)
	want := []string{"--threads", "5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterModuleArgs() = %v, want %v", got, want)
	}
}

func TestFilterModuleArgs_BooleanFlagDoesNotConsumeNextFlagToken(t *testing.T) {
	argv := []string{"--recursive", "--threads", "5"}
	specs := []OptionSpec{
		{Name: "recursive", Type: "bool"},
		{Name: "threads", Type: "int"},
	}

	got := FilterModuleArgs(argv, nil, nil, specs)
	want := []string{"--recursive", "--threads", "5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterModuleArgs() = %v, want %v", got, want)
	}
}

func TestFilterModuleArgs_GlobalValueTokenNotMistakenForFlag(t *testing.T) {
	argv := []string{"--config", "-not-a-path", "--threads", "3"}
	globalLong := map[string]bool{"config": true}
	specs := []OptionSpec{{Name: "threads", Type: "int"}}

	got := FilterModuleArgs(argv, globalLong, nil, specs)
	want := []string{"--threads", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterModuleArgs() = %v, want %v", got, want)
	}
}
