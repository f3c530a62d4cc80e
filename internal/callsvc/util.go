package callsvc

import (
	"fmt"
	"strings"
)

var errNotAHandler = fmt.Errorf("callsvc: component is not a CallMediaHandler")

func errDuplicateName(name string) error {
	return fmt.Errorf("callsvc: handler name %q already registered", name)
}

// componentID derives a handler id that starts with the owning plugin's
// path, so no services manager is left holding a handler whose id starts
// with a path after that plugin has been unloaded.
func componentID(pluginPath, name string) string {
	if name == "" {
		name = "handler"
	}
	return pluginPath + "#" + name
}

func splitScope(scope string) []string {
	parts := strings.Split(scope, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
