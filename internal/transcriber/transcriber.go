// Package transcriber turns a staged media file into a text transcript.
package transcriber

import "context"

// Transcriber is an opaque external collaborator: local file in, text out.
type Transcriber interface {
	Transcribe(ctx context.Context, localPath string) (string, error)
}
