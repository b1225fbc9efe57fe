// Package access issues the capability values that gate privileged
// operations. A capability can only be obtained from this package after the
// caller has been checked against the role holders stored in state, so a
// function taking an OwnerCap or GovernanceCap documents and enforces its
// authorization requirement in its signature.
package access

import (
	"fmt"

	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/crypto"
)

// Role names accepted by TransferRole.
const (
	RoleOwner      = "owner"
	RoleGovernance = "governance"
)

// OwnerCap authorizes game-registry and native-bridge operations.
type OwnerCap struct {
	holder string
}

// GovernanceCap authorizes economic parameter changes and the pause switch.
type GovernanceCap struct {
	holder string
}

// Holder returns the key the capability was issued to.
func (c OwnerCap) Holder() string { return c.holder }

// Verify rejects the zero value, which is the only OwnerCap obtainable
// without RequireOwner.
func (c OwnerCap) Verify() error {
	if c.holder == "" {
		return core.ErrNotOwner
	}
	return nil
}

// Holder returns the key the capability was issued to.
func (c GovernanceCap) Holder() string { return c.holder }

// Verify rejects the zero value.
func (c GovernanceCap) Verify() error {
	if c.holder == "" {
		return core.ErrNotGovernance
	}
	return nil
}

// RequireOwner returns an OwnerCap if caller is the current owner.
func RequireOwner(st core.State, caller string) (OwnerCap, error) {
	ctl, err := st.GetControl()
	if err != nil {
		return OwnerCap{}, err
	}
	if caller == "" || ctl.Owner == "" || caller != ctl.Owner {
		return OwnerCap{}, core.ErrNotOwner
	}
	return OwnerCap{holder: caller}, nil
}

// RequireGovernance returns a GovernanceCap if caller is the current
// governance key.
func RequireGovernance(st core.State, caller string) (GovernanceCap, error) {
	ctl, err := st.GetControl()
	if err != nil {
		return GovernanceCap{}, err
	}
	if caller == "" || ctl.Governance == "" || caller != ctl.Governance {
		return GovernanceCap{}, core.ErrNotGovernance
	}
	return GovernanceCap{holder: caller}, nil
}

// TransferRole hands role to the key to. Only the current holder of that
// role may do so; the caller's capability is re-derived from state.
func TransferRole(st core.State, caller, role, to string) error {
	if !crypto.IsPubKeyHex(to) {
		return fmt.Errorf("new %s: %w", role, core.ErrInvalidAddress)
	}
	ctl, err := st.GetControl()
	if err != nil {
		return err
	}
	switch role {
	case RoleOwner:
		if _, err := RequireOwner(st, caller); err != nil {
			return err
		}
		ctl.Owner = to
	case RoleGovernance:
		if _, err := RequireGovernance(st, caller); err != nil {
			return err
		}
		ctl.Governance = to
	default:
		return fmt.Errorf("unknown role %q: %w", role, core.ErrInvalidParams)
	}
	return st.SetControl(ctl)
}

// SetPaused flips the global pause switch.
func SetPaused(c GovernanceCap, st core.State, paused bool) error {
	if err := c.Verify(); err != nil {
		return err
	}
	ctl, err := st.GetControl()
	if err != nil {
		return err
	}
	ctl.Paused = paused
	return st.SetControl(ctl)
}

// IsOperational reports whether player-facing operations are accepted.
func IsOperational(st core.State) (bool, error) {
	ctl, err := st.GetControl()
	if err != nil {
		return false, err
	}
	return !ctl.Paused, nil
}

// RequireOperational returns core.ErrSystemPaused while the system is paused.
func RequireOperational(st core.State) error {
	ok, err := IsOperational(st)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrSystemPaused
	}
	return nil
}
