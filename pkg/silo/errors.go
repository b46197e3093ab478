package silo

import (
	"errors"
	"fmt"

	ierrors "github.com/vango-dev/silo/internal/errors"
)

// ErrProtocolViolation is matched by every *ProtocolViolation via errors.Is.
var ErrProtocolViolation = errors.New("silo: protocol violation")

// ErrUnknownAction is returned by Dispatch when no action has the given name.
var ErrUnknownAction = errors.New("silo: unknown action")

// ErrPayloadType is returned by Dispatch when the payload does not match the
// payload type the action was bound with.
var ErrPayloadType = errors.New("silo: action payload type mismatch")

// ErrDuplicateAction is the panic value cause when an action name is bound twice.
var ErrDuplicateAction = errors.New("silo: duplicate action name")

// Op names an operation guarded against running inside a modifier.
type Op string

const (
	OpDispatch    Op = "dispatch"
	OpSubscribe   Op = "subscribe"
	OpUnsubscribe Op = "unsubscribe"
	OpDestroy     Op = "destroy"
	OpBind        Op = "bind"
)

// violationCodes maps each guarded operation to its registered error code.
var violationCodes = map[Op]string{
	OpDispatch:    "S001",
	OpSubscribe:   "S002",
	OpUnsubscribe: "S003",
	OpDestroy:     "S004",
	OpBind:        "S005",
}

// ProtocolViolation is the panic value raised when a guarded operation is
// attempted on a silo while one of its modifiers is running. It is a
// programmer error: the call that triggered it is aborted and nothing is
// committed.
type ProtocolViolation struct {
	// Code is the stable error code (S001-S005).
	Code string

	// Op is the operation that was refused.
	Op Op

	// Silo is the name of the silo.
	Silo string

	// Running is the action whose modifier was executing.
	Running string

	// Action is the action that was attempted, for OpDispatch and OpBind.
	Action string
}

func newViolation(op Op, silo, running, action string) *ProtocolViolation {
	return &ProtocolViolation{
		Code:    violationCodes[op],
		Op:      op,
		Silo:    silo,
		Running: running,
		Action:  action,
	}
}

// Error implements the error interface.
func (v *ProtocolViolation) Error() string {
	tmpl, _ := ierrors.GetTemplate(v.Code)
	return fmt.Sprintf("silo: %s: %s", tmpl.Message, v.describe())
}

// Unwrap lets errors.Is match ErrProtocolViolation.
func (v *ProtocolViolation) Unwrap() error {
	return ErrProtocolViolation
}

// Format renders the violation for terminal display.
func (v *ProtocolViolation) Format() string {
	return ierrors.New(v.Code).WithDetail(v.describe()).Format()
}

func (v *ProtocolViolation) describe() string {
	if v.Action != "" {
		return fmt.Sprintf("silo %q was running %q when %s %q was attempted", v.Silo, v.Running, v.Op, v.Action)
	}
	return fmt.Sprintf("silo %q was running %q when %s was attempted", v.Silo, v.Running, v.Op)
}

// AsViolation reports whether r, typically a recovered panic value, is a
// protocol violation.
func AsViolation(r any) (*ProtocolViolation, bool) {
	err, ok := r.(error)
	if !ok {
		return nil, false
	}
	var v *ProtocolViolation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
