package host

import "strings"

// handlerRootPath and handlerName split a component id of the form
// "pluginPath#name" (see internal/callsvc, internal/chatsvc,
// internal/prefsvc) back into its two halves.
func handlerRootPath(id string) string {
	if i := strings.LastIndex(id, "#"); i >= 0 {
		return id[:i]
	}
	return id
}

func handlerName(id string) string {
	if i := strings.LastIndex(id, "#"); i >= 0 {
		return id[i+1:]
	}
	return ""
}
