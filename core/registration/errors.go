package registration

import (
	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound         = errors.New("registration not found")
	ErrSkipped          = errors.New("there is no course or no open semester to open a registration for")
	ErrAlreadyOpen      = errors.New("a registration is already open for this semester")
	ErrOpenElsewhere    = errors.New("the registration of a previous semester is still open")
	ErrOpenPending      = errors.New("a registration is already being opened")
	ErrClosePending     = errors.New("the registration is already being closed")
	ErrEditPending      = errors.New("the registration is being edited")
	ErrInvalidDateRange = errors.New(dateRangeText)
)

// RemoteError is returned by a Remote that rejected a call.
// Message, when set, is human readable and shown to the user as is.
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return "remote call failed"
}

func (e *RemoteError) Unwrap() error { return e.Err }

// MessageOf returns the message carried by a RemoteError in err's chain, or fallback.
func MessageOf(err error, fallback string) string {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Message != "" {
		return remoteErr.Message
	}
	return fallback
}
