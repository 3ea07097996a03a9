package tracker

import (
	"errors"
	"net/http"
)

// IsTerminalError reports whether a status fetch error means the
// podcast can never be observed again, as opposed to a transient
// failure worth retrying on the next tick. Only a 404 (the job is
// gone) or a 403 (access revoked) is terminal; network failures,
// timeouts, 5xx and every other status keep the poll loop alive.
func IsTerminalError(err error) bool {
	var coded interface{ HTTPStatus() int }
	if errors.As(err, &coded) {
		code := coded.HTTPStatus()
		return code == http.StatusNotFound || code == http.StatusForbidden
	}
	return false
}

// FailureMessage extracts the most useful human-readable message from
// a fetch error: the server-supplied error text when the transport
// exposes one, then the error's own text, then a generic fallback.
func FailureMessage(err error) string {
	var server interface{ ServerMessage() string }
	if errors.As(err, &server) {
		if msg := server.ServerMessage(); msg != "" {
			return msg
		}
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "podcast status could not be retrieved"
}
