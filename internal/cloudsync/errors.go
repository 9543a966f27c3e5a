package cloudsync

import "errors"

// ErrDocumentNotFound is returned by a DocumentStore when the document does not exist.
var ErrDocumentNotFound = errors.New("remote document not found")
