package rpc

import "github.com/tolelom/scorechain/core"

var sentinelNames = map[error]string{
	core.ErrNotFound:            "ErrNotFound",
	core.ErrUnauthorizedServer:  "ErrUnauthorizedServer",
	core.ErrNotOwner:            "ErrNotOwner",
	core.ErrNotGovernance:       "ErrNotGovernance",
	core.ErrUnknownGame:         "ErrUnknownGame",
	core.ErrInvalidAddress:      "ErrInvalidAddress",
	core.ErrEmptyGameID:         "ErrEmptyGameID",
	core.ErrScoreOutOfRange:     "ErrScoreOutOfRange",
	core.ErrScoreTooLow:         "ErrScoreTooLow",
	core.ErrDuplicateGame:       "ErrDuplicateGame",
	core.ErrInvalidPublicKey:    "ErrInvalidPublicKey",
	core.ErrInvalidMultiplier:   "ErrInvalidMultiplier",
	core.ErrInvalidAmount:       "ErrInvalidAmount",
	core.ErrInvalidParams:       "ErrInvalidParams",
	core.ErrIdentityExists:      "ErrIdentityExists",
	core.ErrIdentityNotFound:    "ErrIdentityNotFound",
	core.ErrResultExpired:       "ErrResultExpired",
	core.ErrSystemPaused:        "ErrSystemPaused",
	core.ErrInvalidNonce:        "ErrInvalidNonce",
	core.ErrUnknownTxType:       "ErrUnknownTxType",
	core.ErrTxRejected:          "ErrTxRejected",
	core.ErrBadSignature:        "ErrBadSignature",
	core.ErrReplayDetected:      "ErrReplayDetected",
	core.ErrInvalidBlock:        "ErrInvalidBlock",
	core.ErrInsufficientBalance: "ErrInsufficientBalance",
	core.ErrInsufficientStake:   "ErrInsufficientStake",
	core.ErrSupplyCapExceeded:   "ErrSupplyCapExceeded",
	core.ErrMintingDisabled:     "ErrMintingDisabled",
	core.ErrDailyLimitExceeded:  "ErrDailyLimitExceeded",
	core.ErrDrawNotDue:          "ErrDrawNotDue",
	core.ErrFaucetDisabled:      "ErrFaucetDisabled",
}

var kindCodes = map[core.Kind]int{
	core.KindAuthorization: CodeAuthorization,
	core.KindValidation:    CodeValidation,
	core.KindIntegrity:     CodeIntegrity,
	core.KindEconomic:      CodeEconomic,
}

// domainError maps err onto its class code. Errors outside the taxonomy are
// internal errors without data.
func domainError(id any, err error) Response {
	kind, sentinel := core.ErrorKind(err)
	code, ok := kindCodes[kind]
	if !ok || sentinel == nil {
		return errResponse(id, CodeInternalError, err.Error())
	}
	resp := errResponse(id, code, err.Error())
	resp.Error.Data = &ErrorData{Kind: string(kind), Reason: sentinelNames[sentinel]}
	return resp
}
