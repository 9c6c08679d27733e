// Package archive wraps the remote system of record: an issue tracker for
// published journals plus file storage for captured images.
package archive

import "context"

// RecordRef identifies a published record in the archive.
type RecordRef struct {
	ID  int64
	URL string
}

// Client is the create-record / upload-blob capability the merge engine
// consumes. CreateRecord is called exactly once per successful publish
// attempt; retries after failure are new calls on a later attempt.
type Client interface {
	CreateRecord(ctx context.Context, title, body string, labels []string) (RecordRef, error)
	UploadBlob(ctx context.Context, path string, content []byte, message string) (string, error)
}
