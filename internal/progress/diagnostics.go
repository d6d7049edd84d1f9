package progress

import "strings"

// maxDiagnostics bounds the retained error lines so a chatty transcoder
// cannot grow memory without limit.
const maxDiagnostics = 10

var failureKeywords = []string{
	"error",
	"failed",
	"not found",
	"permission denied",
	"connection refused",
	"no such file",
}

// diagRing keeps the most recent transcoder lines that look like failures.
type diagRing struct {
	lines []string
}

func (d *diagRing) scan(line string) {
	l := strings.ToLower(line)
	for _, kw := range failureKeywords {
		if strings.Contains(l, kw) {
			d.add(strings.TrimSpace(line))
			return
		}
	}
}

func (d *diagRing) add(line string) {
	if line == "" {
		return
	}
	d.lines = append(d.lines, line)
	if len(d.lines) > maxDiagnostics {
		d.lines = d.lines[len(d.lines)-maxDiagnostics:]
	}
}

// join returns the retained lines as a single string for failure reporting.
func (d *diagRing) join() string {
	return strings.Join(d.lines, "\n")
}
