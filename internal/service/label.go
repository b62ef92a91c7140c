package service

import "strings"

// DisplayName returns the last segment of path, splitting on both '/' and
// '\'. The full path is returned when that segment is empty.
func DisplayName(path string) string {
	i := strings.LastIndexAny(path, `/\`)
	name := path[i+1:]
	if name == "" {
		return path
	}
	return name
}

// Label builds the history label for a prompt, suffixed with the context
// file as " ./<name>" when there is one.
func Label(prompt, displayName string) string {
	if displayName == "" {
		return prompt
	}
	return prompt + " ./" + displayName
}
