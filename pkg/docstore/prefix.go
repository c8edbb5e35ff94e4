package docstore

import "strings"

// JoinKey places key under a root prefix. An empty prefix leaves key
// unchanged; a trailing slash on the key is kept so prefix listings do not
// match sibling names.
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// TrimKey is the inverse of JoinKey.
func TrimKey(prefix, full string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return full
	}
	return strings.TrimPrefix(full, prefix+"/")
}
