package service

// Kind classifies a business-rule failure. The HTTP layer maps kinds to
// status codes; services never deal in transport concerns.
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindAuth
	KindNotFound
)

// Error is a kind-tagged business error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Invalid(msg string) error      { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindAuth, Message: msg} }
func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
