// filter.go
//
// Optional "visible properties" filter for class tracing. The filter file is
// plain text, one class per line:
//
//	; comment
//	Point x,y
//	Line  start end
//
// First token is the class name, the remaining comma/space-separated tokens
// are the field names allowed to appear in traces. The filter is cosmetic:
// any parse failure makes the file count as absent, never fatal. Loading
// happens once, lazily, and the result is read-only afterwards, so one
// filter may be shared by multiple mirrors without locking.
package protocore

import (
	"os"
	"strings"
	"sync"
)

type PropertyFilter struct {
	path string

	once    sync.Once
	classes map[string]map[string]bool
}

// NewPropertyFilter prepares a filter for the given file path. An empty
// path means no filtering.
func NewPropertyFilter(path string) *PropertyFilter {
	return &PropertyFilter{path: path}
}

// Allowed returns the allowed field set for a class, or nil when the class
// is unfiltered (all fields shown).
func (f *PropertyFilter) Allowed(className string) map[string]bool {
	if f == nil {
		return nil
	}
	f.once.Do(f.load)
	if f.classes == nil {
		return nil
	}
	return f.classes[className]
}

func (f *PropertyFilter) load() {
	if f.path == "" {
		return
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return // best-effort: absent file means no filtering
	}
	classes := map[string]map[string]bool{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		tokens := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		if len(tokens) < 2 {
			continue // class with no fields listed: ignore the line
		}
		allowed := map[string]bool{}
		for _, field := range tokens[1:] {
			allowed[field] = true
		}
		classes[tokens[0]] = allowed
	}
	f.classes = classes
}
