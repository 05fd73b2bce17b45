package wikibase

import "fmt"

// RemoteRequestError wraps a failed create, get or protect request
type RemoteRequestError struct {
	Action string
	Err    error
}

func (e *RemoteRequestError) Error() string {
	return fmt.Sprintf("wikibase %s request failed: %v", e.Action, e.Err)
}

func (e *RemoteRequestError) Unwrap() error {
	return e.Err
}
