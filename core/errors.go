package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorCode is the closed set of domain failures a command can return.
type ErrorCode string

const (
	CodeAlreadyExistentAuction   ErrorCode = "ALREADY_EXISTENT_AUCTION"
	CodeAuctionNotFound          ErrorCode = "AUCTION_NOT_FOUND"
	CodeAuctionExpired           ErrorCode = "AUCTION_EXPIRED"
	CodeAlreadyFinishedAuction   ErrorCode = "ALREADY_FINISHED_AUCTION"
	CodeStillActiveAuction       ErrorCode = "STILL_ACTIVE_AUCTION"
	CodeInvalidAuctionCreator    ErrorCode = "INVALID_AUCTION_CREATOR"
	CodeMaxParticipantsReached   ErrorCode = "MAX_PARTICIPANTS_REACHED"
	CodeMinimumBidNotSatisfied   ErrorCode = "MINIMUM_BID_NOT_SATISFIED"
	CodeAlreadyActivatedAuction  ErrorCode = "ALREADY_ACTIVATED_AUCTION"
	CodeStillInClaimPeriod       ErrorCode = "STILL_IN_CLAIM_PERIOD"
	CodeUnknownTransferStatus    ErrorCode = "UNKNOWN_TRANSFER_STATUS"
	CodeInvalidPayment           ErrorCode = "INVALID_PAYMENT"
	CodeInvalidAuctionParameters ErrorCode = "INVALID_AUCTION_PARAMETERS"
	CodeUnauthorizedConfirmation ErrorCode = "UNAUTHORIZED_CONFIRMATION"
	CodeStorageFailure           ErrorCode = "STORAGE_FAILURE"
)

// ContractError is the typed failure returned at the command boundary.
type ContractError struct {
	Code     ErrorCode
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *ContractError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ContractError) Unwrap() error {
	return e.Cause
}

// Is matches any ContractError carrying the same code, so callers can write
// errors.Is(err, core.ErrAuctionNotFound).
func (e *ContractError) Is(target error) bool {
	if t, ok := target.(*ContractError); ok {
		return e.Code == t.Code
	}
	return false
}

func newError(code ErrorCode, message string) *ContractError {
	return &ContractError{Code: code, Message: message}
}

// Sentinels for errors.Is comparisons.
var (
	ErrAlreadyExistentAuction   = newError(CodeAlreadyExistentAuction, "auction already exists for creator")
	ErrAuctionNotFound          = newError(CodeAuctionNotFound, "auction not found")
	ErrAuctionExpired           = newError(CodeAuctionExpired, "auction expired")
	ErrAlreadyFinishedAuction   = newError(CodeAlreadyFinishedAuction, "auction already finished")
	ErrStillActiveAuction       = newError(CodeStillActiveAuction, "auction is still active")
	ErrInvalidAuctionCreator    = newError(CodeInvalidAuctionCreator, "sender is not the auction creator")
	ErrMaxParticipantsReached   = newError(CodeMaxParticipantsReached, "max participants reached")
	ErrMinimumBidNotSatisfied   = newError(CodeMinimumBidNotSatisfied, "minimum bid not satisfied")
	ErrAlreadyActivatedAuction  = newError(CodeAlreadyActivatedAuction, "auction already activated")
	ErrStillInClaimPeriod       = newError(CodeStillInClaimPeriod, "previous auction is still in its claim period")
	ErrInvalidPayment           = newError(CodeInvalidPayment, "invalid payment")
	ErrInvalidAuctionParameters = newError(CodeInvalidAuctionParameters, "invalid auction parameters")
	ErrUnauthorizedConfirmation = newError(CodeUnauthorizedConfirmation, "unauthorized transfer confirmation")
	ErrStorageFailure           = newError(CodeStorageFailure, "storage failure")
)

// ErrMinimumBid reports the amount a bid had to reach.
func ErrMinimumBid(min decimal.Decimal) *ContractError {
	return &ContractError{
		Code:     CodeMinimumBidNotSatisfied,
		Message:  fmt.Sprintf("minimum bid not satisfied: min %s", min),
		Metadata: map[string]string{"min": min.String()},
	}
}

// ErrUnknownTransferStatus reports a status string the host should never send.
func ErrUnknownTransferStatus(status string) *ContractError {
	return &ContractError{
		Code:     CodeUnknownTransferStatus,
		Message:  fmt.Sprintf("unknown transfer status %q", status),
		Metadata: map[string]string{"status": status},
	}
}

// InvalidPayment describes why a bid's payment was rejected.
func InvalidPayment(reason string) *ContractError {
	return &ContractError{Code: CodeInvalidPayment, Message: "invalid payment: " + reason}
}

// InvalidParameters describes why a create request was rejected.
func InvalidParameters(reason string) *ContractError {
	return &ContractError{Code: CodeInvalidAuctionParameters, Message: "invalid auction parameters: " + reason}
}

// Unauthorized wraps a confirmation verification failure.
func Unauthorized(cause error) *ContractError {
	return &ContractError{Code: CodeUnauthorizedConfirmation, Message: "unauthorized transfer confirmation", Cause: cause}
}

// StorageFailure normalizes a lower-level store error into the domain taxonomy.
func StorageFailure(op string, cause error) *ContractError {
	return &ContractError{Code: CodeStorageFailure, Message: op + " failed", Cause: cause}
}
