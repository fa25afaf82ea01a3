// Package s3 stores run reports in S3-compatible object storage.
//
// Reports are kept under "<prefix>/<run-id>.<ext>" so past runs can be
// listed and fetched back by ID.
package s3
