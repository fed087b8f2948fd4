package propshttp

import "strings"

func attachmentDisposition(filename string) string {
	return `attachment; filename="` + sanitizeHeaderFilename(filename) + `"`
}

func sanitizeHeaderFilename(name string) string {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return "file"
	}
	replacer := strings.NewReplacer(
		"\r", "",
		"\n", "",
		"\"", "",
		";", "_",
		"/", "_",
		"\\", "_",
	)
	clean = strings.TrimSpace(replacer.Replace(clean))
	if clean == "" {
		return "file"
	}
	return clean
}
