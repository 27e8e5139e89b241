package domain

import "fmt"

// AuthError reports rejected credentials (401/403).
type AuthError struct {
	SiteID string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("site %s rejected the request: verify the username, application password and connection setup", e.SiteID)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError reports a missing endpoint (404): the API is not
// enabled on the remote side or the site URL is wrong.
type NotFoundError struct {
	SiteID string
	URL    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("site %s: %s not found: the REST API may be disabled or the site URL is wrong", e.SiteID, e.URL)
}

// NetworkError reports a request that never reached the server
// (DNS, connectivity, timeout).
type NetworkError struct {
	SiteID string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("site %s unreachable: %v", e.SiteID, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteAPIError reports any other non-2xx response, carrying the
// remote error message when the body provided one.
type RemoteAPIError struct {
	SiteID     string
	StatusCode int
	Message    string
}

func (e *RemoteAPIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("site %s returned %d: %s", e.SiteID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("site %s returned %d", e.SiteID, e.StatusCode)
}

// MediaUploadError reports a failed or half-succeeded media upload.
// A 2xx response without a media id is still a failure: the caller must
// never treat a malformed success as success.
type MediaUploadError struct {
	SiteID string
	Reason string
	Err    error
}

func (e *MediaUploadError) Error() string {
	return fmt.Sprintf("media upload to site %s failed: %s", e.SiteID, e.Reason)
}

func (e *MediaUploadError) Unwrap() error { return e.Err }

// ValidationError reports a precondition violated before any remote
// call was made (publishing to a virtual site, updating without a
// post id, and so on).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
