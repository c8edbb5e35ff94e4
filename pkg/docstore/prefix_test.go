package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinKey(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "oak.json", "oak.json"},
		{"wordstree", "oak.json", "wordstree/oak.json"},
		{"/wordstree/", "trees/", "wordstree/trees/"},
		{"a/b", "", "a/b/"},
	}
	for _, tt := range tests {
		got := JoinKey(tt.prefix, tt.key)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.key, TrimKey(tt.prefix, got))
	}
}
