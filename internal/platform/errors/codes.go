// Package errors provides structured, machine-readable error handling
// for the quest ledger.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Authorization errors
	CodeIdentityRejected Code = "AUTH_IDENTITY_REJECTED"
	CodeNotOwner         Code = "AUTH_NOT_OWNER"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Validation errors
	CodeIDNotFixedWidth  Code = "ID_NOT_FIXED_WIDTH"
	CodeIdentityEmpty    Code = "IDENTITY_EMPTY"
	CodeMemoMalformed    Code = "MEMO_MALFORMED"
	CodeQuestEndTooSoon  Code = "QUEST_END_TOO_SOON"
	CodeQuestNameEmpty   Code = "QUEST_NAME_EMPTY"
	CodeTaskNameEmpty    Code = "TASK_NAME_EMPTY"
	CodeCommunityNameEmpty Code = "COMMUNITY_NAME_EMPTY"

	// Referential integrity errors
	CodeTaskNotAttached       Code = "TASK_NOT_ATTACHED"
	CodeIntegrityAlreadyMember Code = "INTEGRITY_ALREADY_MEMBER"
	CodeIntegrityNotMember     Code = "INTEGRITY_NOT_MEMBER"
	CodeIntegrityForeignQuest  Code = "INTEGRITY_FOREIGN_QUEST"

	// Accrual errors
	CodeScoreOverflow Code = "SCORE_OVERFLOW"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeIdentityRejected:
		return codes.Unauthenticated

	case CodeNotOwner:
		return codes.PermissionDenied

	case CodeNotFound:
		return codes.NotFound

	case CodeAlreadyExists:
		return codes.AlreadyExists

	// InvalidArgument - validation failures, bad input
	case CodeIDNotFixedWidth,
		CodeIdentityEmpty,
		CodeMemoMalformed,
		CodeQuestEndTooSoon,
		CodeQuestNameEmpty,
		CodeTaskNameEmpty,
		CodeCommunityNameEmpty:
		return codes.InvalidArgument

	// FailedPrecondition - relation state doesn't allow the operation
	case CodeTaskNotAttached,
		CodeIntegrityAlreadyMember,
		CodeIntegrityNotMember,
		CodeIntegrityForeignQuest:
		return codes.FailedPrecondition

	case CodeScoreOverflow:
		return codes.OutOfRange

	default:
		return codes.Internal
	}
}
