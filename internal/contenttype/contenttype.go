// Package contenttype guesses a resource's content type from its name.
package contenttype

import (
	"mime"
	"path"
	"strings"
)

// Unknown is returned when nothing better is known about a name.
const Unknown = "application/octet-stream"

// Detector returns a best-guess content type for a resource name.
type Detector interface {
	Detect(name string) string
}

// Types used by resource trees that the platform mime table either lacks or
// reports inconsistently across systems.
var byExt = map[string]string{
	".css":        "text/css",
	".js":         "application/javascript",
	".mjs":        "application/javascript",
	".json":       "application/json",
	".html":       "text/html",
	".htm":        "text/html",
	".xml":        "application/xml",
	".ftl":        "text/x-freemarker",
	".yaml":       "text/x-yaml",
	".yml":        "text/x-yaml",
	".properties": "text/x-java-properties",
	".txt":        "text/plain",
	".md":         "text/x-web-markdown",
	".svg":        "image/svg+xml",
	".png":        "image/png",
	".jpg":        "image/jpeg",
	".jpeg":       "image/jpeg",
	".gif":        "image/gif",
	".woff":       "font/woff",
	".woff2":      "font/woff2",
}

// ByName detects by file extension.
type ByName struct{}

// Detect implements Detector.
func (ByName) Detect(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return Unknown
	}
	if t, ok := byExt[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		// Drop parameters such as "; charset=utf-8".
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return Unknown
}
