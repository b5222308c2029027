package ledger

import (
	"github.com/privia-labs/privia/pkg/types"
)

// Allowance is what a spender may still take from an account.
type Allowance struct {
	Allowance types.Tokens `json:"allowance"`
	ExpiresAt *uint64      `json:"expires_at,omitempty"`
}

// Allowance returns the current allowance of spender over acct.
func (l *Ledger) Allowance(acct, spender types.Account) (Allowance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if now < l.lastTime {
		now = l.lastTime
	}
	return l.allowanceLocked(acct, spender, now)
}

// allowanceLocked scans the log: the latest approval from acct to spender
// sets the allowance and anything spender moved out of acct consumes it.
// An expiry passed by a later transaction or by now resets it to zero.
func (l *Ledger) allowanceLocked(acct, spender types.Account, now uint64) (Allowance, error) {
	var (
		allowance types.Tokens
		expiresAt *uint64
	)
	err := l.stores.Transactions.Scan(0, func(_ uint64, tx *Transaction) error {
		if expiresAt != nil && *expiresAt < tx.Timestamp {
			allowance, expiresAt = types.Tokens{}, nil
		}
		if tx.From == nil || *tx.From != acct {
			return nil
		}
		switch tx.Kind {
		case KindApprove:
			if tx.Spender != nil && *tx.Spender == spender {
				allowance = tx.Amount
				expiresAt = tx.ExpiresAt
			}
		case KindTransfer, KindBurn, KindMint:
			if tx.Spender == nil || *tx.Spender != spender {
				return nil
			}
			spent := tx.Amount
			if tx.Fee != nil {
				spent = spent.Add(*tx.Fee)
			}
			if rest, err := allowance.Sub(spent); err == nil {
				allowance = rest
			} else {
				allowance = types.Tokens{}
			}
		}
		return nil
	})
	if err != nil {
		return Allowance{}, err
	}
	if expiresAt != nil && *expiresAt < now {
		allowance, expiresAt = types.Tokens{}, nil
	}
	return Allowance{Allowance: allowance, ExpiresAt: expiresAt}, nil
}
