package errs

// Failure classes of the realtime core. Codes are stable; HTTP mapping
// lives at the API boundary.
const (
	CodeValidation       = 1001 // malformed input, rejected before any state change
	CodeNotAuthenticated = 1002 // no resolvable session
	CodeNoRecipients     = 1003 // distribution pool resolved empty
	CodeNoAssignment     = 1004 // claim found nothing pending
	CodeStoreUnavailable = 1005 // durable store unreachable on a non-best-effort path
)

var (
	ErrValidation       = NewCodeError(CodeValidation, "invalid request")
	ErrNotAuthenticated = NewCodeError(CodeNotAuthenticated, "not authenticated")
	ErrNoRecipients     = NewCodeError(CodeNoRecipients, "no eligible recipients")
	ErrNoAssignment     = NewCodeError(CodeNoAssignment, "no pending assignment")
	ErrStoreUnavailable = NewCodeError(CodeStoreUnavailable, "store unavailable")
)
