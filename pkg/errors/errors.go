// Package errors provides the structured error system used throughout the
// VFS core: error kinds, categories, and the path/cause context every
// raised error carries (spec §7).
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind is the taxonomy of error kinds a VFS operation can raise (spec §7).
type Kind string

const (
	KindNotSupported       Kind = "NOT_SUPPORTED"
	KindFileNotFound       Kind = "FILE_NOT_FOUND"
	KindDirectoryNotFound  Kind = "DIRECTORY_NOT_FOUND"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindAlreadyExists      Kind = "ALREADY_EXISTS"
	KindPathEscape         Kind = "PATH_ESCAPE"
	KindPathTooLong        Kind = "PATH_TOO_LONG"
	KindInvalidPath        Kind = "INVALID_PATH"
	KindCanceled           Kind = "CANCELED"
	KindIoError            Kind = "IO_ERROR"
	KindAggregate          Kind = "AGGREGATE"
	KindDisposed           Kind = "DISPOSED"
)

// Category groups kinds for reporting and dashboards.
type Category string

const (
	CategoryNotFound    Category = "not_found"
	CategoryPermission  Category = "permission"
	CategoryPath        Category = "path"
	CategoryState       Category = "state"
	CategoryIO          Category = "io"
	CategoryCanceled    Category = "canceled"
	CategoryInternal    Category = "internal"
)

// categoryOf maps a Kind to its Category.
func categoryOf(k Kind) Category {
	switch k {
	case KindFileNotFound, KindDirectoryNotFound:
		return CategoryNotFound
	case KindUnauthorized:
		return CategoryPermission
	case KindPathEscape, KindPathTooLong, KindInvalidPath:
		return CategoryPath
	case KindAlreadyExists, KindDisposed:
		return CategoryState
	case KindCanceled:
		return CategoryCanceled
	case KindIoError, KindAggregate:
		return CategoryIO
	default:
		return CategoryInternal
	}
}

// VFSError is the structured error every public VFS operation raises.
// It always carries the offending VFS identity and path, per spec §7's
// "User-visible behavior" clause.
type VFSError struct {
	Kind     Kind           `json:"kind"`
	Category Category       `json:"category"`
	Message  string         `json:"message"`

	VFS       string            `json:"vfs,omitempty"`
	Path      string            `json:"path,omitempty"`
	Component string            `json:"component,omitempty"`
	Operation string            `json:"operation,omitempty"`
	Context   map[string]string `json:"context,omitempty"`

	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`

	// Errs holds the constituent errors when Kind == KindAggregate.
	Errs []error `json:"-"`
}

// Error implements the error interface.
func (e *VFSError) Error() string {
	var b strings.Builder
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s", e.Component)
		if e.Operation != "" {
			fmt.Fprintf(&b, ":%s", e.Operation)
		}
		b.WriteString("] ")
	}
	fmt.Fprintf(&b, "%s", e.Kind)
	if e.Path != "" {
		fmt.Fprintf(&b, " path=%q", e.Path)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause.Error())
	}
	return b.String()
}

// Unwrap supports errors.Is/errors.As against the cause chain.
func (e *VFSError) Unwrap() error {
	return e.Cause
}

// Is matches on Kind, so callers can do errors.Is(err, errors.New(KindFileNotFound, "")).
func (e *VFSError) Is(target error) bool {
	t, ok := target.(*VFSError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a VFSError of the given kind.
func New(kind Kind, message string) *VFSError {
	return &VFSError{
		Kind:      kind,
		Category:  categoryOf(kind),
		Message:   message,
		Timestamp: time.Now(),
		Retryable: isRetryableByDefault(kind),
	}
}

func isRetryableByDefault(k Kind) bool {
	switch k {
	case KindIoError:
		return true
	default:
		return false
	}
}

// WithVFS sets the owning VFS identity.
func (e *VFSError) WithVFS(vfs string) *VFSError { e.VFS = vfs; return e }

// WithPath sets the offending path.
func (e *VFSError) WithPath(path string) *VFSError { e.Path = path; return e }

// WithComponent sets the component (backend name / mount path) that raised the error.
func (e *VFSError) WithComponent(component string) *VFSError { e.Component = component; return e }

// WithOperation sets the operation name.
func (e *VFSError) WithOperation(op string) *VFSError { e.Operation = op; return e }

// WithCause attaches the underlying cause.
func (e *VFSError) WithCause(cause error) *VFSError { e.Cause = cause; return e }

// WithContext adds a contextual key/value pair.
func (e *VFSError) WithContext(key, value string) *VFSError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// NewAggregate wraps multiple errors raised during fan-out (disposal,
// multi-backend operations) as a single KindAggregate error.
func NewAggregate(message string, errs ...error) *VFSError {
	filtered := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		if ve, ok := filtered[0].(*VFSError); ok {
			return ve
		}
	}
	agg := New(KindAggregate, message)
	agg.Errs = filtered
	msgs := make([]string, len(filtered))
	for i, err := range filtered {
		msgs[i] = err.Error()
	}
	agg.Message = fmt.Sprintf("%s: %s", message, strings.Join(msgs, "; "))
	return agg
}

// Is reports whether err is a VFSError of the given kind.
func Is(err error, kind Kind) bool {
	var ve *VFSError
	if !asVFSError(err, &ve) {
		return false
	}
	return ve.Kind == kind
}

func asVFSError(err error, target **VFSError) bool {
	for err != nil {
		if ve, ok := err.(*VFSError); ok {
			*target = ve
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// JSON renders the error as a JSON string, useful for structured log fields.
func (e *VFSError) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
