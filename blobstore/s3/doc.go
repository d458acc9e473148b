// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("indexes/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	reg := horago.New(horago.WithStore(store))
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large dumps
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
