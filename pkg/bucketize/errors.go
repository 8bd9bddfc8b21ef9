package bucketize

import "errors"

var (
	// ErrInvalidRange indicates a rejected percentile bucket configuration.
	ErrInvalidRange = errors.New("invalid percentile bucket")
	// ErrInternalFault indicates an index window that violates the row
	// count bound. It signals a mapping defect, never bad input, and is
	// deliberately not clamped.
	ErrInternalFault = errors.New("internal consistency fault")
	// ErrScanAborted indicates the progress callback requested an abort
	// during row collection.
	ErrScanAborted = errors.New("ranked scan aborted by progress callback")
)
