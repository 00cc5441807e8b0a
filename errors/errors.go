// Package errors provides the single error type used across the node:
// a stable small-integer code plus a human message, following the
// taxonomy in spec §7. Packages never define their own error structs;
// they construct *Error values with a package-specific ERR code.
package errors

import (
	"errors"
	"fmt"
	"reflect"
)

// ERR is a stable, small-integer error code. Values are never reused or
// reordered once released, since callers may persist them (e.g. in API
// responses).
type ERR int32

const (
	ERR_UNKNOWN ERR = iota

	// Format / boundary errors.
	ERR_FORMAT_INSUFFICIENT_BYTES
	ERR_FORMAT_TRAILING_BYTES
	ERR_FORMAT_INVALID

	// Utreexo errors (spec §4.1, §7).
	ERR_UTREEXO_INVALID_PROOF
	ERR_UTREEXO_ITEM_OUT_OF_BOUNDS
	ERR_UTREEXO_ALREADY_DELETED

	// Blockchain / header errors (spec §4.2, §7).
	ERR_BLOCKCHAIN_INCONSISTENT_HEADER
	ERR_BLOCKCHAIN_ILLEGAL_EXTENSION
	ERR_BLOCKCHAIN_BAD_TX_TIMESTAMP
	ERR_BLOCKCHAIN_BAD_TX_VERSION
	ERR_BLOCKCHAIN_TX_INVALID
	ERR_BLOCKCHAIN_UTXO_PROOF_MISSING
	ERR_BLOCKCHAIN_BLOCK_NOT_FOUND
	ERR_BLOCKCHAIN_BLOCK_NOT_RELEVANT
	ERR_BLOCKCHAIN_STALE_MEMPOOL_STATE
	ERR_BLOCKCHAIN_MEMPOOL_FULL

	// Signature / musig errors (spec §4.6, §7).
	ERR_MUSIG_INVALID_POINT
	ERR_MUSIG_SHARE_MISMATCH
	ERR_MUSIG_POINT_OPERATION_FAILED
	ERR_MUSIG_BAD_ARGUMENTS
	ERR_MUSIG_OUT_OF_ORDER

	// Key derivation errors.
	ERR_KEYTREE_DECODE_FAILED

	// Config errors.
	ERR_CONFIG_INVALID
)

var errName = map[ERR]string{
	ERR_UNKNOWN:                         "unknown error",
	ERR_FORMAT_INSUFFICIENT_BYTES:       "insufficient bytes",
	ERR_FORMAT_TRAILING_BYTES:           "trailing bytes",
	ERR_FORMAT_INVALID:                  "invalid format",
	ERR_UTREEXO_INVALID_PROOF:           "invalid utreexo proof",
	ERR_UTREEXO_ITEM_OUT_OF_BOUNDS:      "utreexo item out of bounds",
	ERR_UTREEXO_ALREADY_DELETED:        "utreexo item already deleted",
	ERR_BLOCKCHAIN_INCONSISTENT_HEADER:  "inconsistent block header",
	ERR_BLOCKCHAIN_ILLEGAL_EXTENSION:    "illegal extension field for block version",
	ERR_BLOCKCHAIN_BAD_TX_TIMESTAMP:     "transaction timestamp out of bounds",
	ERR_BLOCKCHAIN_BAD_TX_VERSION:       "transaction version incompatible with block version",
	ERR_BLOCKCHAIN_TX_INVALID:           "transaction failed verification",
	ERR_BLOCKCHAIN_UTXO_PROOF_MISSING:   "utreexo proof missing for input",
	ERR_BLOCKCHAIN_BLOCK_NOT_FOUND:      "block not found",
	ERR_BLOCKCHAIN_BLOCK_NOT_RELEVANT:   "block not relevant",
	ERR_BLOCKCHAIN_STALE_MEMPOOL_STATE:  "mempool state is stale",
	ERR_BLOCKCHAIN_MEMPOOL_FULL:         "mempool at capacity",
	ERR_MUSIG_INVALID_POINT:             "point decoding failed",
	ERR_MUSIG_SHARE_MISMATCH:            "signature share failed to verify",
	ERR_MUSIG_POINT_OPERATION_FAILED:    "point operation failed",
	ERR_MUSIG_BAD_ARGUMENTS:             "bad arguments",
	ERR_MUSIG_OUT_OF_ORDER:              "signer received messages out of order",
	ERR_KEYTREE_DECODE_FAILED:           "key decoding failed",
	ERR_CONFIG_INVALID:                  "invalid configuration",
}

// String implements fmt.Stringer for use in log fields and Error().
func (c ERR) String() string {
	if s, ok := errName[c]; ok {
		return s
	}
	return fmt.Sprintf("ERR(%d)", int32(c))
}

// ErrData is implemented by structured error payloads attached with
// WithData, so that callers can errors.As into the concrete type.
type ErrData interface {
	Error() string
}

// Error is the sole error type constructed throughout this module.
type Error struct {
	Code       ERR
	Message    string
	WrappedErr error
	Data       ErrData
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	dataMsg := ""
	if e.Data != nil {
		dataMsg = e.Data.Error()
	}

	if e.WrappedErr == nil {
		if dataMsg == "" {
			return fmt.Sprintf("%d: %s", e.Code, e.Message)
		}
		return fmt.Sprintf("%d: %s, data: %s", e.Code, e.Message, dataMsg)
	}

	if dataMsg == "" {
		return fmt.Sprintf("%s (code %d): %s: %v", e.Code, e.Code, e.Message, e.WrappedErr)
	}
	return fmt.Sprintf("%s (code %d): %s: %v, data: %s", e.Code, e.Code, e.Message, e.WrappedErr, dataMsg)
}

// Is reports whether two *Error values share the same Code, recursing
// through WrappedErr when the codes disagree.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	var ue *Error
	if errors.As(target, &ue) {
		if e.Code == ue.Code {
			return true
		}
	}

	if unwrapped := errors.Unwrap(e); unwrapped != nil {
		if ue, ok := unwrapped.(*Error); ok {
			return ue.Is(target)
		}
	}

	return false
}

// As supports errors.As unwrapping into *Error or into e.Data's concrete type.
func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}

	if targetErr, ok := target.(**Error); ok {
		*targetErr = e
		return true
	}

	if e.Data != nil {
		if data, ok := e.Data.(error); ok {
			if errors.As(data, target) {
				return true
			}
		}
	}

	if e.WrappedErr != nil {
		if reflect.ValueOf(e.WrappedErr).Kind() == reflect.Ptr && reflect.ValueOf(e.WrappedErr).IsNil() {
			return false
		}
		return errors.As(e.WrappedErr, target)
	}

	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.WrappedErr
}

// New constructs an *Error. The last element of params may be an error
// (wrapped as the cause) or a *Error (wrapped verbatim); any remaining
// params are used as fmt.Sprintf arguments for message.
func New(code ERR, message string, params ...interface{}) *Error {
	var wErr error

	if len(params) > 0 {
		last := params[len(params)-1]
		if err, ok := last.(error); ok {
			wErr = err
			params = params[:len(params)-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	return &Error{
		Code:       code,
		Message:    message,
		WrappedErr: wErr,
	}
}

// WithData attaches a structured payload to an existing error.
func (e *Error) WithData(data ErrData) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Data = data
	return &cp
}

// Is delegates to the standard library; kept here so callers can
// `import "github.com/cloakchain/zkvmnode/errors"` exclusively.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As delegates to the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join concatenates non-nil error messages with ", ", returning nil if
// none are non-nil. Matches the teacher's errors.Join helper.
func Join(errs ...error) error {
	var msg string
	n := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		if n > 0 {
			msg += ", "
		}
		msg += err.Error()
		n++
	}
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%s", msg)
}
