package record

import (
	"path/filepath"
	"strings"
)

var recordExtensions = map[string]bool{
	"rd":  true,
	"edf": true,
	"000": true,
	"001": true,
	"002": true,
}

// IsRecordFile reports whether name looks like an rd000 capture, either by the
// ".rd." infix (co2a0000364.rd.000) or by a known extension.
func IsRecordFile(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	if strings.Contains(base, ".rd.") {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	return ext != "" && recordExtensions[ext]
}
