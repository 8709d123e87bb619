package matrixparser

import "fmt"

// registry maps a matrix format's short name to a constructor for its
// parser. Each call builds a fresh instance, and the email processor builds
// one per file, since BaseParser keeps per-file state that must not leak
// from one file to the next.
var registry = map[string]func() Parser{
	"amerigreen": NewAmerigreenParser,
	"volunteer":  NewVolunteerParser,
}

// NewParser builds the parser registered for name, or an error if no
// format by that name is registered. Dispatch is a static map lookup
// rather than dynamic class resolution: adding a supplier means adding an
// entry here, not relying on runtime discovery.
func NewParser(name string) (Parser, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("matrixparser: no parser registered for format %q", name)
	}
	return ctor(), nil
}

// Names returns every registered format name, for diagnostics and tests.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
