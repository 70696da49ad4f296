package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// GenerateETag generates a strong ETag from response content
func GenerateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:16]) + `"`
}

// ParseIfNoneMatch splits an If-None-Match header into its entity tags
func ParseIfNoneMatch(header string) []string {
	var etags []string
	for _, part := range strings.Split(header, ",") {
		if part = strings.TrimSpace(part); part != "" {
			etags = append(etags, part)
		}
	}
	return etags
}

// MatchesETag reports whether etag matches any candidate using weak comparison
func MatchesETag(etag string, candidates []string) bool {
	for _, candidate := range candidates {
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

// NotModified writes 304 and returns true when the request's If-None-Match
// matches etag
func NotModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	header := r.Header.Get("If-None-Match")
	if header == "" || !MatchesETag(etag, ParseIfNoneMatch(header)) {
		return false
	}
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
	return true
}
