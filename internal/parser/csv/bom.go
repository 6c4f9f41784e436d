package csv

import "strings"

// utf8BOM is stripped from the start of the first line if present.
const utf8BOM = "\uFEFF"

// stripBOM removes a leading UTF-8 byte order mark from line.
func stripBOM(line string) string {
	return strings.TrimPrefix(line, utf8BOM)
}
