package services

import "errors"

// Pipeline failure kinds. Upload and append failures abort the submission and
// surface to the caller; push delivery failures never do.
var (
	ErrAttachmentUploadFailed = errors.New("attachment upload failed")
	ErrPersistenceFailed      = errors.New("persistence failed")
)
