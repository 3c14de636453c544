package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// DefaultMessage is shown when an error carries nothing more specific.
const DefaultMessage = "Ocorreu um erro"

// ErrUnauthenticated is matched by token source errors that mean there is
// no usable session. Such calls fail with KindUnauthorized before anything
// is sent.
var ErrUnauthenticated = errors.New("not authenticated")

// Kind classifies a failed backend call.
type Kind int

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = iota + 1
	// KindValidation is a 422, or a 400 carrying field errors.
	KindValidation
	// KindConflict is a business rejection (409, or another 4xx without field errors).
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindServer
	// KindDecode means a 2xx response whose body could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned for every failed call made through the Client.
type Error struct {
	Kind    Kind
	Status  int // 0 when no response was received
	Method  string
	Path    string
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %d: %v", e.Method, e.Path, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
}

func (e *Error) Unwrap() error { return e.Err }

// FieldErrors is the "errors" object of a response. Each field carries a
// list of messages or a single message.
type FieldErrors map[string][]string

func (f *FieldErrors) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		// Anything but an object carries no field messages.
		*f = nil
		return nil
	}
	out := make(FieldErrors, len(raw))
	for name, value := range raw {
		var msgs []string
		if err := json.Unmarshal(value, &msgs); err == nil {
			out[name] = msgs
			continue
		}
		var msg string
		if err := json.Unmarshal(value, &msg); err == nil {
			out[name] = []string{msg}
		}
	}
	*f = out
	return nil
}

// FirstFieldMessage returns the first message of the first field, with
// fields taken in sorted order.
func (e *Error) FirstFieldMessage() string {
	if len(e.Fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if msgs := e.Fields[name]; len(msgs) > 0 && msgs[0] != "" {
			return msgs[0]
		}
	}
	return ""
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

// KindOf returns the kind of a gateway error, or 0 when err is not one.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}

// Message extracts a human-readable message from err: the server's
// message, then the first field error, then the transport error text and
// finally fallback.
func Message(err error, fallback string) string {
	if fallback == "" {
		fallback = DefaultMessage
	}
	if err == nil {
		return fallback
	}
	var ge *Error
	if !errors.As(err, &ge) {
		if msg := err.Error(); msg != "" {
			return msg
		}
		return fallback
	}
	if ge.Message != "" {
		return ge.Message
	}
	if msg := ge.FirstFieldMessage(); msg != "" {
		return msg
	}
	if (ge.Kind == KindNetwork || ge.Status == 0) && ge.Err != nil {
		return ge.Err.Error()
	}
	return fallback
}

// kindForStatus maps a non-2xx status to a Kind. hasFields reports whether
// the body carried an "errors" object.
func kindForStatus(status int, hasFields bool) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindServer
	case status >= 400 && hasFields:
		return KindValidation
	default:
		return KindConflict
	}
}
