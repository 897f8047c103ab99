package policy

import (
	"github.com/bytedance/sonic"
)

// Reason identifies which control rejected a request. The string value is
// returned to the client verbatim.
type Reason string

const (
	ReasonUnauthorizedOrigin Reason = "Unauthorized origin"
	ReasonInvalidJSON        Reason = "Invalid JSON"
	ReasonCommandNotAllowed  Reason = "Command not allowed"
	ReasonURLNotAllowed      Reason = "URL not allowed"
)

// Sentinel errors for errors.Is against a *ValidationError.
var (
	ErrUnauthorizedOrigin = &ValidationError{Reason: ReasonUnauthorizedOrigin}
	ErrInvalidJSON        = &ValidationError{Reason: ReasonInvalidJSON}
	ErrCommandNotAllowed  = &ValidationError{Reason: ReasonCommandNotAllowed}
	ErrURLNotAllowed      = &ValidationError{Reason: ReasonURLNotAllowed}
)

// ValidationError is the error form of an Invalid result.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return string(e.Reason)
}

// Is matches any *ValidationError with the same reason.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// CommandPayload is the parsed request body.
type CommandPayload struct {
	Command string
	Args    []any
}

// Result is the outcome of validating one request. A zero Reason means the
// request is valid and Payload is set.
type Result struct {
	Reason  Reason
	Payload *CommandPayload
}

// Valid reports whether the request passed every check.
func (r Result) Valid() bool {
	return r.Reason == ""
}

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Reason: r.Reason}
}

func invalid(reason Reason) Result {
	return Result{Reason: reason}
}

// Validator checks requests against a fixed set of allow-lists.
type Validator struct {
	lists *AllowLists
}

// NewValidator creates a validator backed by lists. lists must not be mutated
// afterwards.
func NewValidator(lists *AllowLists) *Validator {
	return &Validator{lists: lists}
}

// AllowLists returns the lists the validator checks against.
func (v *Validator) AllowLists() *AllowLists {
	return v.lists
}

// Validate runs the checks in order and stops at the first failure. The
// origin is checked before the body is parsed so untrusted callers learn
// nothing about the body format.
func (v *Validator) Validate(body []byte, origin string) Result {
	if !v.lists.IsAllowedOrigin(origin) {
		return invalid(ReasonUnauthorizedOrigin)
	}

	payload, err := ParsePayload(body)
	if err != nil {
		return invalid(ReasonInvalidJSON)
	}

	if !v.lists.IsAllowedCommand(payload.Command) {
		return invalid(ReasonCommandNotAllowed)
	}

	if v.lists.IsURLCommand(payload.Command) {
		target, _ := payload.FirstArg().(string)
		if target == "" || !v.lists.IsAllowedURL(target) {
			return invalid(ReasonURLNotAllowed)
		}
	}

	return Result{Payload: payload}
}

// ParsePayload decodes body as JSON. Any valid JSON document is accepted;
// fields of the wrong type are treated as absent.
func ParsePayload(body []byte) (*CommandPayload, error) {
	var doc any
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	payload := &CommandPayload{}
	obj, ok := doc.(map[string]any)
	if !ok {
		return payload, nil
	}
	payload.Command, _ = obj["command"].(string)
	payload.Args, _ = obj["args"].([]any)
	return payload, nil
}

// FirstArg returns args[0], or nil when there are no args.
func (p *CommandPayload) FirstArg() any {
	if len(p.Args) == 0 {
		return nil
	}
	return p.Args[0]
}
