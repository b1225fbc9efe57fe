package core

import "errors"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Authorization errors: the caller lacks the required capability.
var (
	ErrUnauthorizedServer = errors.New("unauthorized server")
	ErrNotOwner           = errors.New("caller is not the owner")
	ErrNotGovernance      = errors.New("caller is not governance")
)

// Validation errors.
var (
	ErrUnknownGame       = errors.New("unknown game")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrEmptyGameID       = errors.New("empty game id")
	ErrScoreOutOfRange   = errors.New("score out of range")
	ErrScoreTooLow       = errors.New("score below game minimum")
	ErrDuplicateGame     = errors.New("game already registered")
	ErrInvalidPublicKey  = errors.New("invalid server public key")
	ErrInvalidMultiplier = errors.New("invalid difficulty multiplier")
	ErrInvalidAmount     = errors.New("amount must be > 0")
	ErrInvalidParams     = errors.New("invalid parameters")
	ErrIdentityExists    = errors.New("identity already minted")
	ErrIdentityNotFound  = errors.New("player has no identity")
	ErrResultExpired     = errors.New("result timestamp outside accepted window")
	ErrSystemPaused      = errors.New("system paused")
	ErrInvalidNonce      = errors.New("invalid account nonce")
	ErrUnknownTxType     = errors.New("unknown transaction type")
	ErrTxRejected        = errors.New("transaction rejected")
)

// Integrity errors: cryptographic or replay-protection failures. Never retried.
var (
	ErrBadSignature   = errors.New("bad result signature")
	ErrReplayDetected = errors.New("result already applied")
)

// Economic constraint errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStake   = errors.New("insufficient stake")
	ErrSupplyCapExceeded   = errors.New("supply cap exceeded")
	ErrMintingDisabled     = errors.New("minting disabled")
	ErrDailyLimitExceeded  = errors.New("daily limit exceeded")
	ErrDrawNotDue          = errors.New("lottery draw not due")
	ErrFaucetDisabled      = errors.New("faucet disabled")
)

// Kind classifies an error into the rejection taxonomy.
type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindValidation    Kind = "validation"
	KindIntegrity     Kind = "integrity"
	KindEconomic      Kind = "economic"
	KindInternal      Kind = "internal"
)

var taxonomy = []struct {
	kind Kind
	errs []error
}{
	{KindAuthorization, []error{ErrUnauthorizedServer, ErrNotOwner, ErrNotGovernance}},
	{KindIntegrity, []error{ErrBadSignature, ErrReplayDetected, ErrInvalidBlock}},
	{KindEconomic, []error{
		ErrInsufficientBalance, ErrInsufficientStake, ErrSupplyCapExceeded,
		ErrMintingDisabled, ErrDailyLimitExceeded, ErrDrawNotDue, ErrFaucetDisabled,
	}},
	{KindValidation, []error{
		ErrUnknownGame, ErrInvalidAddress, ErrEmptyGameID, ErrScoreOutOfRange,
		ErrScoreTooLow, ErrDuplicateGame, ErrInvalidPublicKey, ErrInvalidMultiplier,
		ErrInvalidAmount, ErrInvalidParams, ErrIdentityExists, ErrIdentityNotFound,
		ErrResultExpired, ErrSystemPaused, ErrInvalidNonce, ErrUnknownTxType, ErrTxRejected,
		ErrNotFound,
	}},
}

// ErrorKind returns the taxonomy class of err and the sentinel it wraps.
// Errors outside the taxonomy are KindInternal with a nil sentinel.
func ErrorKind(err error) (Kind, error) {
	if err == nil {
		return "", nil
	}
	for _, group := range taxonomy {
		for _, sentinel := range group.errs {
			if errors.Is(err, sentinel) {
				return group.kind, sentinel
			}
		}
	}
	return KindInternal, nil
}
