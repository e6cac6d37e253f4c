package indexer

import "errors"

var (
	// ErrProvisioningFailure means the index could not be listed or created.
	ErrProvisioningFailure = errors.New("index provisioning failed")

	// ErrUploadFailure means a batch upsert failed and the remaining batches were abandoned.
	ErrUploadFailure = errors.New("batch upload failed")
)
