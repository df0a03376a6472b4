package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures for the HTTP layer. Errors without any of
// these tags are internal errors.
var (
	ErrTagBadRequest       = goerr.NewTag("bad_request")
	ErrTagNotFound         = goerr.NewTag("not_found")
	ErrTagMethodNotAllowed = goerr.NewTag("method_not_allowed")
)

// IsClientError reports whether err was caused by the request rather than the server
func IsClientError(err error) bool {
	return goerr.HasTag(err, ErrTagBadRequest) ||
		goerr.HasTag(err, ErrTagNotFound) ||
		goerr.HasTag(err, ErrTagMethodNotAllowed)
}
