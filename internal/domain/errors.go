package domain

import "errors"

var ErrNotFound = errors.New("not found")

// ErrInconsistentInput reports a TorrentStatus/Meta pair whose content
// identifiers differ. This is caller-side corruption and must never be
// resolved into a silent pin or a silent eviction.
var ErrInconsistentInput = errors.New("status and meta refer to different content")

// ErrMissingThreshold is returned in strict mode when a tracker seen during a
// cycle has no explicit seed threshold configured.
var ErrMissingThreshold = errors.New("tracker has no configured seed threshold")

var ErrNoCandidates = errors.New("no candidates")
