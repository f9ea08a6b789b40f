package testutil

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	prefixDecl = regexp.MustCompile(`^PREFIX ([A-Za-z][\w-]*): <([^>]*)>$`)
	prefixName = regexp.MustCompile(`(^|[\s{}(),;^])([A-Za-z][\w-]*):((?:[\w-]|%[0-9A-F]{2})*(?:\.(?:[\w-]|%[0-9A-F]{2})+)*)`)
)

// Expand rewrites every prefixed name declared in the prologue of query as a
// full <iri>, so assertions hold whichever form the renderer chose. The
// prologue itself is left as is.
func Expand(query string) string {
	ns := map[string]string{}
	lines := strings.Split(query, "\n")
	for i, line := range lines {
		if m := prefixDecl.FindStringSubmatch(line); m != nil {
			ns[m[1]] = m[2]
			continue
		}
		lines[i] = prefixName.ReplaceAllStringFunc(line, func(s string) string {
			m := prefixName.FindStringSubmatch(s)
			base, ok := ns[m[2]]
			if !ok {
				return s
			}
			local, err := url.PathUnescape(m[3])
			if err != nil {
				local = m[3]
			}
			return m[1] + "<" + base + local + ">"
		})
	}
	return strings.Join(lines, "\n")
}
