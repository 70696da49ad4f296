package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
)

// KeyFunc derives a cache key from a request
type KeyFunc func(r *http.Request) string

// RequestKey keys a request on its method, path, sorted query and the
// normalized X-Include header, hashed to a fixed length.
func RequestKey(r *http.Request) string {
	// Encode sorts keys but keeps repeated values in order, which matters for order terms
	parts := []string{r.Method, r.URL.Path, r.URL.Query().Encode()}

	if includes := r.Header.Values("X-Include"); len(includes) > 0 {
		var names []string
		for _, value := range includes {
			for _, name := range strings.Split(value, ",") {
				if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
					names = append(names, name)
				}
			}
		}
		sort.Strings(names)
		parts = append(parts, strings.Join(names, ","))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return "http:" + hex.EncodeToString(hash[:16])
}
