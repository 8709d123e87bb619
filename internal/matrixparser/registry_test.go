package matrixparser

import (
	"sort"
	"testing"
)

func TestNewParserKnownFormats(t *testing.T) {
	for _, name := range []string{"amerigreen", "volunteer"} {
		p, err := NewParser(name)
		if err != nil {
			t.Fatalf("NewParser(%q): %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("Name() = %q, want %q", p.Name(), name)
		}
	}
}

func TestNewParserUnknownFormat(t *testing.T) {
	if _, err := NewParser("nonexistent"); err == nil {
		t.Fatal("expected error for unregistered format")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	sort.Strings(names)
	want := []string{"amerigreen", "volunteer"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
