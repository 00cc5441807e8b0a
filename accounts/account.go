// Package accounts builds Receivers: the payment-address-equivalent a
// payer commits a confidential Value against, deterministically derived
// from a single Xpub so a wallet never has to back up per-output
// blinding factors (spec §4.5). Grounded on
// _examples/original_source/accounts/src/receiver.rs and
// accounts/src/lib.rs's Account/Sequence types.
package accounts

import (
	"github.com/cloakchain/zkvmnode/keytree"
	"github.com/cloakchain/zkvmnode/pkg/contract"
)

// Account tracks a single xpub and the next sequence number it has not
// yet handed out as a receiver (spec §3 "Account").
type Account struct {
	Xpub     *keytree.Xpub
	Sequence uint64
}

// NextReceiver generates a Receiver at the account's current sequence
// number and advances it, so callers never reuse a sequence by mistake.
func (a *Account) NextReceiver(value contract.ClearValue) Receiver {
	r := GenerateReceiver(a.Xpub, a.Sequence, value)
	a.Sequence++
	return r
}
