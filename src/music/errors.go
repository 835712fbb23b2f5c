package music

import "fmt"

// NotFoundError reports a search or playlist lookup without results.
type NotFoundError struct {
	Kind  string
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found for %q", e.Kind, e.Query)
}

// TransferError reports a failed track or image transfer.
type TransferError struct {
	Kind string
	Name string
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s %q to %s: %v", e.Kind, e.Name, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// PathDerivationError reports remote metadata that does not fit a path strategy.
type PathDerivationError struct {
	Strategy string
	Subject  string
	Reason   string
	Err      error
}

func (e *PathDerivationError) Error() string {
	msg := fmt.Sprintf("derive %s path for %q: %s", e.Strategy, e.Subject, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PathDerivationError) Unwrap() error { return e.Err }
