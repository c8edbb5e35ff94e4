// Package redis stores documents as Redis string values.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/matzehuels/wordstree/pkg/docstore"
)

// Store keeps each document under prefix + ":" + key.
type Store struct {
	client goredis.UniversalClient
	prefix string
	owned  bool
}

// New wraps an existing client. The caller keeps ownership of it.
func New(client goredis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Dial connects to a single Redis server and checks it is reachable.
func Dial(ctx context.Context, opts *goredis.Options, prefix string) (*Store, error) {
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	return &Store{client: client, prefix: prefix, owned: true}, nil
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := docstore.CheckKey(key); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("document %q: %w", key, docstore.ErrNotFound)
	}
	return data, err
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := docstore.CheckKey(key); err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, 0).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := docstore.CheckKey(key); err != nil {
		return err
	}
	return s.client.Del(ctx, s.key(key)).Err()
}

// List scans for matching keys. SCAN may return a key more than once; the
// result is deduplicated.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string

	iter := s.client.Scan(ctx, 0, escapeGlob(s.key(prefix))+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if s.prefix != "" {
			k = strings.TrimPrefix(k, s.prefix+":")
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the client if Dial created it.
func (s *Store) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ docstore.Store = (*Store)(nil)
