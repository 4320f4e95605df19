package llm

import "fmt"

// FailureKind enumerates the ways an enrichment request can fail.
type FailureKind int

const (
	MissingCredential FailureKind = iota + 1
	Timeout
	HTTPStatus
	RemoteError
	MalformedResponse
	TransportError
)

func (k FailureKind) String() string {
	switch k {
	case MissingCredential:
		return "missing-credential"
	case Timeout:
		return "timeout"
	case HTTPStatus:
		return "http-status"
	case RemoteError:
		return "remote-error"
	case MalformedResponse:
		return "malformed-response"
	case TransportError:
		return "transport-error"
	default:
		return "unknown"
	}
}

// Failure is the typed error returned by Client.Fetch. Its Error text is the
// user-facing message shown in place of an explanation.
type Failure struct {
	Kind    FailureKind
	Code    int    // HTTPStatus only
	Message string // RemoteError only
	Cause   error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case MissingCredential:
		return "Set your API key in the menu to enable AI responses."
	case Timeout:
		return "Request timed out."
	case HTTPStatus:
		return fmt.Sprintf("API request failed (%d)", f.Code)
	case RemoteError:
		return "API Error: " + f.Message
	case MalformedResponse:
		return "Unable to parse response."
	case TransportError:
		return "Request timed out or failed."
	default:
		return "Request failed."
	}
}

func (f *Failure) Unwrap() error { return f.Cause }
