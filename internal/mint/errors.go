package mint

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies why a mint attempt failed. Every pipeline failure
// carries exactly one kind so callers can map it to a single user-facing
// message without inspecting error text.
type FailureKind int

const (
	// KindUnknown is the catch-all; the wrapped error holds the detail.
	KindUnknown FailureKind = iota
	// KindNotConnected: no wallet account available; nothing was attempted.
	KindNotConnected
	// KindInsufficientBalance: the wallet cannot cover rent plus fees. The
	// error carries the required and actual lamport amounts.
	KindInsufficientBalance
	// KindUserRejected: the user declined the transaction in their wallet.
	// A benign abort, not an application error.
	KindUserRejected
	// KindNetwork: a transient RPC or transport failure. Retryable by the
	// user; the pipeline never retries on its own.
	KindNetwork
	// KindConfirmationTimeout: the transaction was submitted but confirmation
	// did not arrive in time. It may still have landed.
	KindConfirmationTimeout
)

// String returns the kind as a short stable token, used in logs and API
// responses.
func (k FailureKind) String() string {
	switch k {
	case KindNotConnected:
		return "not_connected"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindUserRejected:
		return "user_rejected"
	case KindNetwork:
		return "network"
	case KindConfirmationTimeout:
		return "confirmation_timeout"
	default:
		return "unknown"
	}
}

// Error is the pipeline's failure type. Step names the pipeline stage that
// failed; Required/Actual are only set for KindInsufficientBalance.
type Error struct {
	Kind     FailureKind
	Step     string
	Required uint64 // lamports
	Actual   uint64 // lamports
	Err      error
}

func (e *Error) Error() string {
	if e.Kind == KindInsufficientBalance {
		return fmt.Sprintf("mint %s: insufficient balance: have %d lamports, need %d", e.Step, e.Actual, e.Required)
	}
	if e.Err != nil {
		return fmt.Sprintf("mint %s: %s: %v", e.Step, e.Kind, e.Err)
	}
	return fmt.Sprintf("mint %s: %s", e.Step, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage maps the failure to the one message shown to the user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNotConnected:
		return "Wallet not connected. Please sign in first."
	case KindInsufficientBalance:
		return fmt.Sprintf("Insufficient balance: %.4f SOL. Need at least %.4f SOL for minting.",
			lamportsToSol(e.Actual), lamportsToSol(e.Required))
	case KindUserRejected:
		return "Transaction cancelled."
	case KindNetwork:
		return "Network error while minting. Please check your connection and try again."
	case KindConfirmationTimeout:
		return "Transaction sent but not yet confirmed. Check your wallet before retrying."
	default:
		return "Failed to mint NFT. Please try again."
	}
}

// cancellationPhrases are the known wordings of a user declining a wallet
// prompt, accumulated from wallet adapter SDKs. Matching error text is
// fragile but it is the only signal those SDKs expose, so the list is kept
// here in one place.
var cancellationPhrases = []string{
	"cancellationexception", // Java wallet adapter surfaces this class name
	"user rejected",
	"user cancelled",
	"user denied",
	"rejected",
	"cancelled",
	"canceled",
}

// IsCancellation reports whether err looks like the user declining the
// signing prompt rather than a real failure.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range cancellationPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// classify wraps a raw error from one pipeline step with a failure kind.
// Cancellation signatures win over everything else; remaining errors from
// network-touching steps default to KindNetwork.
func classify(step string, err error) *Error {
	var me *Error
	if errors.As(err, &me) {
		return me
	}
	if IsCancellation(err) {
		return &Error{Kind: KindUserRejected, Step: step, Err: err}
	}
	return &Error{Kind: KindNetwork, Step: step, Err: err}
}
