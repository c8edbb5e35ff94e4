// Package docstore stores whole documents under string keys.
//
// A [Store] is the "storage root" of the file-backed loader: a place where
// one document per tree can be written, read back, listed and removed.
// Writes replace a document as a unit, so readers never observe a
// partially written document.
//
// Implementations:
//
//   - [Local]: files under a directory
//   - [Memory]: an in-process map, for tests
//   - [github.com/matzehuels/wordstree/pkg/docstore/redis]: Redis strings
//   - [github.com/matzehuels/wordstree/pkg/docstore/mongo]: a MongoDB collection
//   - [github.com/matzehuels/wordstree/pkg/docstore/s3]: an S3 bucket
//   - [github.com/matzehuels/wordstree/pkg/docstore/minio]: a MinIO or other S3-compatible bucket
//
// [Compressed] wraps any Store with zstd compression.
package docstore
