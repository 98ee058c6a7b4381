package objectstore

import (
	"fmt"
	"strings"
)

// URI builds a storage URI of the form scheme://bucket/key.
func URI(scheme, bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, bucket, strings.TrimPrefix(key, "/"))
}

// ParseURI splits a storage URI into scheme, bucket and key.
func ParseURI(uri string) (scheme, bucket, key string, err error) {
	idx := strings.Index(uri, "://")
	if idx <= 0 {
		return "", "", "", fmt.Errorf("invalid storage URI %q", uri)
	}
	scheme = uri[:idx]
	rest := uri[idx+3:]
	slash := strings.Index(rest, "/")
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", "", fmt.Errorf("invalid storage URI %q", uri)
	}
	return scheme, rest[:slash], rest[slash+1:], nil
}
