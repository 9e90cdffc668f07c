// Package s3 fetches objects from S3-compatible object storage. It is used
// to mirror the recovery image onto the provisioning host.
package s3
