package assets

import (
	"bufio"
	"embed"
	"html/template"
	"strings"
)

//go:embed index.html status.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// StatusMessages returns the canned lines cycled under the terminal header.
func StatusMessages() ([]string, error) {
	return readLines("status.txt")
}

// PageTemplate parses the terminal page.
func PageTemplate() (*template.Template, error) {
	return template.ParseFS(FS, "index.html")
}
