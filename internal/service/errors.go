package service

import "github.com/pkg/errors"

type ErrorCode string

const (
	ErrorCodeTeamExists          ErrorCode = "TEAM_EXISTS"
	ErrorCodeTransactionExists   ErrorCode = "TRANSACTION_EXISTS"
	ErrorCodeAlreadyTerminal     ErrorCode = "ALREADY_TERMINAL"
	ErrorCodeShardRejected       ErrorCode = "SHARD_REJECTED"
	ErrorCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	ErrorCodeNotMember           ErrorCode = "NOT_MEMBER"
	ErrorCodeMemberInactive      ErrorCode = "MEMBER_INACTIVE"
	ErrorCodeQuorumInvalid       ErrorCode = "QUORUM_INVALID"
	ErrorCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrorCodeInvalidBody         ErrorCode = "INVALID_BODY"
	ErrorCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrorCodeUnspecified         ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// asServiceError unwraps a *Error raised inside a transactor scope; any
// other failure, commit errors included, surfaces as UNSPECIFIED.
func asServiceError(err error) *Error {
	var res *Error
	if errors.As(err, &res) {
		return res
	}
	return NewError(ErrorCodeUnspecified, "internal error")
}
