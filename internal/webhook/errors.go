package webhook

import "errors"

// errAssetsNotAvailable is what fetchViaAPI records as its last error when
// CheckLatestRelease reports no update yet (the release event arrived before
// the API's assets list was populated), and logs once attempts run out.
var errAssetsNotAvailable = errors.New("webhook: assets not yet available")
