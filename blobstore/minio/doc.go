// Package minio provides a MinIO (and S3-compatible) implementation of
// blobstore.Store.
//
//	client, _ := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	store := minio.NewStore(client, "indexes", "prod/")
package minio
