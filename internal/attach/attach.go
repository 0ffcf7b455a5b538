package attach

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Resolve normalizes picker results into attachment URIs. Values that are
// already URIs (file://, http://, https://) pass through verbatim; bare
// paths must point at an existing regular file and become file:// URIs.
// Order is preserved: it is the display order of the attachment list.
func Resolve(values ...string) ([]string, error) {
	uris := make([]string, 0, len(values))
	for _, v := range values {
		if isURI(v) {
			uris = append(uris, v)
			continue
		}

		abs, err := filepath.Abs(v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", v, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("attachment %q: %w", v, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("attachment %q is a directory", v)
		}
		uris = append(uris, "file://"+filepath.ToSlash(abs))
	}
	return uris, nil
}

func isURI(v string) bool {
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "file", "http", "https":
		return true
	}
	return false
}
