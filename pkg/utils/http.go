package utils

import "io"

// DrainAndClose consumes and closes a response body. The upstream fetcher
// hits nine endpoints per run; draining keeps those connections reusable.
func DrainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, rc)
	return rc.Close()
}
