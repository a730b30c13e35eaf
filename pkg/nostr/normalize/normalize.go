package normalize

import (
	"net/url"
	"strings"
)

// URL normalizes the url and replaces http://, https:// schemes with
// ws://, wss:// and normalizes the path.
func URL(u string) string {
	if u == "" {
		return ""
	}
	u = strings.TrimSpace(u)
	u = strings.ToLower(u)

	if fragment := strings.SplitN(u, "#", 2); len(fragment) > 1 {
		u = fragment[0]
	}
	if !strings.HasPrefix(u, "http") && !strings.HasPrefix(u, "ws") {
		u = "wss://" + u
	}
	p, err := url.Parse(u)
	if err != nil {
		return ""
	}
	switch p.Scheme {
	case "https":
		p.Scheme = "wss"
	case "http":
		p.Scheme = "ws"
	}
	p.Path = strings.TrimRight(p.Path, "/")

	return p.String()
}

// URLs normalizes a list of relay URLs, dropping any that do not parse.
func URLs(urls []string) (out []string) {
	for _, u := range urls {
		if n := URL(u); n != "" {
			out = append(out, n)
		}
	}
	return
}
