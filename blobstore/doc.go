// Package blobstore provides the storage abstraction used to dump and load
// indexes.
//
// A Store maps names to immutable blobs. Dumps are streamed through Create and
// become visible atomically when the WritableBlob is closed; loads read a Blob
// through io.ReaderAt. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap reads and atomic renames
//   - MemoryStore: In-process map, for tests and ephemeral servers
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//   - sqlite.Store: A single table in an embedded SQLite database
//   - badger.Store: An embedded Badger key-value store
//
// # Custom Implementations
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)            // Open for reading
//	    Create(ctx, name) (WritableBlob, error)  // Create for writing
//	    Put(ctx, name, data) error               // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
