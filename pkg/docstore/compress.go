package docstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// CompressedStore compresses documents with zstd on Put. Get accepts both
// compressed and plain documents, so compression can be switched on for a
// root that already holds uncompressed ones.
type CompressedStore struct {
	Store
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Compressed wraps inner.
func Compressed(inner Store) (*CompressedStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &CompressedStore{Store: inner, enc: enc, dec: dec}, nil
}

// Get reads and, if needed, decompresses a document.
func (c *CompressedStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %q: %w", key, err)
	}
	return out, nil
}

// Put compresses and writes a document.
func (c *CompressedStore) Put(ctx context.Context, key string, data []byte) error {
	return c.Store.Put(ctx, key, c.enc.EncodeAll(data, nil))
}

// Close releases the codecs and closes the wrapped store.
func (c *CompressedStore) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		return err
	}
	return c.Store.Close()
}

var _ Store = (*CompressedStore)(nil)
