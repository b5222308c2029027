// Package ledger implements the token ledger: balances, the transaction
// log with duplicate detection, and the engine that validates, classifies
// and applies transfer-family operations.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	klog "github.com/privia-labs/privia/internal/log"
	"github.com/privia-labs/privia/internal/staking"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
	"github.com/rs/zerolog"
)

// Clock returns the current time in nanoseconds since the Unix epoch.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() uint64 { return uint64(time.Now().UnixNano()) }

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

// Now implements Clock.
func (f ClockFunc) Now() uint64 { return f() }

// StakingRecorder receives the balance changes of applied transactions.
type StakingRecorder interface {
	Stage(w storage.Writer, seq uint64, e staking.Entry) error
}

// Stores are the four logical stores the ledger owns.
type Stores struct {
	Config       ConfigStore
	Balances     BalanceStore
	Transactions TransactionLog
	Staking      StakingRecorder
}

// Namespaces of the logical stores in the node database.
var (
	NamespaceConfig       = []byte("c/")
	NamespaceBalances     = []byte("b/")
	NamespaceTransactions = []byte("x/")
	NamespaceStaking      = []byte("s/")
)

// OpenStores creates the database-backed stores inside db. The staking
// log is passed in because the scorer reads from it too.
func OpenStores(db storage.DB, stakes StakingRecorder) (Stores, error) {
	txs, err := NewTransactionLog(storage.NewPrefixDB(db, NamespaceTransactions))
	if err != nil {
		return Stores{}, err
	}
	return Stores{
		Config:       NewConfigStore(storage.NewPrefixDB(db, NamespaceConfig)),
		Balances:     NewBalanceStore(storage.NewPrefixDB(db, NamespaceBalances)),
		Transactions: txs,
		Staking:      stakes,
	}, nil
}

// Allocation is an initial balance minted at genesis.
type Allocation struct {
	Account types.Account `json:"account"`
	Amount  types.Tokens  `json:"amount"`
}

// Ledger is the ledger engine. All reads, validation and writes of one
// operation happen under a single lock, and writes go through one batch.
type Ledger struct {
	mu     sync.Mutex
	db     storage.DB
	stores Stores
	clock  Clock
	logger zerolog.Logger

	cfg      Configuration
	ready    bool
	next     uint64 // next log position
	lastTime uint64

	listeners []func(accounts []types.Account)
}

// New opens a ledger over stores. db must be the database the stores
// were created on; it provides the batches that make each apply atomic.
func New(db storage.DB, stores Stores, clock Clock) (*Ledger, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	l := &Ledger{
		db:     db,
		stores: stores,
		clock:  clock,
		logger: klog.Ledger,
	}
	cfg, ok, err := stores.Config.Load()
	if err != nil {
		return nil, err
	}
	l.cfg, l.ready = cfg, ok

	n, err := stores.Transactions.Len()
	if err != nil {
		return nil, err
	}
	l.next = n
	if n > 0 {
		last, err := stores.Transactions.Get(n - 1)
		if err != nil {
			return nil, err
		}
		l.lastTime = last.Timestamp
	}
	return l, nil
}

// Subscribe registers fn to be called after every commit with the
// accounts whose balances changed. fn runs with the ledger locked and
// must not call back into it.
func (l *Ledger) Subscribe(fn func(accounts []types.Account)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// now returns a sequencing timestamp that never goes backwards.
func (l *Ledger) now() uint64 {
	t := l.clock.Now()
	if t < l.lastTime {
		t = l.lastTime
	}
	l.lastTime = t
	return t
}

// Initialize stores the configuration and mints the genesis allocations
// in one atomic commit.
func (l *Ledger) Initialize(cfg Configuration, allocs []Allocation) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return ErrAlreadyInitialized
	}

	now := l.now()
	p := l.begin()
	defer p.discard()
	if err := l.stores.Config.Stage(p.batch, cfg); err != nil {
		return err
	}
	for _, a := range allocs {
		to := a.Account
		tx := &Transaction{Kind: KindMint, To: &to, Amount: a.Amount, Timestamp: now}
		if _, err := p.record(tx, nil); err != nil {
			return err
		}
	}
	if err := p.commit(); err != nil {
		return err
	}
	l.cfg, l.ready = cfg, true
	l.logger.Info().
		Str("symbol", cfg.Symbol).
		Int("allocations", len(allocs)).
		Msg("Ledger initialized")
	return nil
}

// Initialized reports whether the configuration cell has been written.
func (l *Ledger) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// Transfer moves tokens from the caller's account. Transfers from the
// minting account are mints; transfers to it are burns.
func (l *Ledger) Transfer(caller types.Address, args TransferArgs) (uint64, error) {
	to := args.To
	op := &operation{
		From:      types.WithSubaccount(caller, args.FromSubaccount),
		To:        &to,
		Amount:    args.Amount,
		Fee:       args.Fee,
		Memo:      args.Memo,
		CreatedAt: args.CreatedAt,
	}
	pos, rej, err := l.submit(op, nil)
	if err != nil {
		return 0, err
	}
	if rej != nil {
		return 0, &TransferError{*rej}
	}
	return pos, nil
}

// Approve sets the allowance of spender over the caller's account.
func (l *Ledger) Approve(caller types.Address, args ApproveArgs) (uint64, error) {
	spender := args.Spender
	op := &operation{
		From:              types.WithSubaccount(caller, args.FromSubaccount),
		Spender:           &spender,
		Amount:            args.Amount,
		Fee:               args.Fee,
		Memo:              args.Memo,
		CreatedAt:         args.CreatedAt,
		ExpectedAllowance: args.ExpectedAllowance,
		ExpiresAt:         args.ExpiresAt,
		IsApproval:        true,
	}
	check := func(now uint64) (*Rejection, error) {
		if args.ExpiresAt != nil && *args.ExpiresAt < now {
			return &Rejection{Kind: KindExpired, LedgerTime: uint64Ptr(now)}, nil
		}
		if args.ExpectedAllowance == nil {
			return nil, nil
		}
		current, err := l.allowanceLocked(op.From, spender, now)
		if err != nil {
			return nil, err
		}
		if !current.Allowance.Equal(*args.ExpectedAllowance) {
			return &Rejection{Kind: KindAllowanceChanged, CurrentAllowance: tokensPtr(current.Allowance)}, nil
		}
		return nil, nil
	}
	pos, rej, err := l.submit(op, check)
	if err != nil {
		return 0, err
	}
	if rej != nil {
		return 0, asApproveError(*rej)
	}
	return pos, nil
}

// TransferFrom moves tokens out of args.From on behalf of the caller,
// spending an allowance. When the caller owns args.From it is a plain
// Transfer.
func (l *Ledger) TransferFrom(caller types.Address, args TransferFromArgs) (uint64, error) {
	if caller == args.From.Owner {
		from := args.From.Subaccount
		pos, err := l.Transfer(caller, TransferArgs{
			FromSubaccount: &from,
			To:             args.To,
			Amount:         args.Amount,
			Fee:            args.Fee,
			Memo:           args.Memo,
			CreatedAt:      args.CreatedAt,
		})
		var te *TransferError
		if errors.As(err, &te) {
			return 0, &TransferFromError{te.Rejection}
		}
		return pos, err
	}

	spender := types.WithSubaccount(caller, args.SpenderSubaccount)
	to := args.To
	op := &operation{
		From:      args.From,
		To:        &to,
		Spender:   &spender,
		Amount:    args.Amount,
		Fee:       args.Fee,
		Memo:      args.Memo,
		CreatedAt: args.CreatedAt,
	}
	check := func(now uint64) (*Rejection, error) {
		current, err := l.allowanceLocked(args.From, spender, now)
		if err != nil {
			return nil, err
		}
		if current.Allowance.Cmp(args.Amount.Add(l.cfg.TransferFee)) < 0 {
			return &Rejection{Kind: KindInsufficientAllowance, Allowance: tokensPtr(current.Allowance)}, nil
		}
		return nil, nil
	}
	pos, rej, err := l.submit(op, check)
	if err != nil {
		return 0, err
	}
	if rej != nil {
		return 0, &TransferFromError{*rej}
	}
	return pos, nil
}

// SplitBalance transfers half of the caller's balance to target, paying
// the regular fee on top. The half is taken from the balance seen under
// the ledger lock.
func (l *Ledger) SplitBalance(caller types.Address, fromSub *types.Subaccount, target types.Account) (uint64, error) {
	to := target
	op := &operation{
		From: types.WithSubaccount(caller, fromSub),
		To:   &to,
	}
	check := func(uint64) (*Rejection, error) {
		bal, err := l.stores.Balances.Balance(op.From)
		if err != nil {
			return nil, err
		}
		op.Amount = bal.DivUint64(2)
		if op.Amount.IsZero() {
			r := rejectGeneric(CodeNothingToSplit, "balance too small to split")
			return &r, nil
		}
		return nil, nil
	}
	pos, rej, err := l.submit(op, check)
	if err != nil {
		return 0, err
	}
	if rej != nil {
		return 0, &TransferError{*rej}
	}
	return pos, nil
}

// UpdateConfig applies an administrative change. Only the owner of the
// minting account may call it.
func (l *Ledger) UpdateConfig(caller types.Address, u ConfigUpdate) (Configuration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return Configuration{}, ErrNotInitialized
	}
	if l.cfg.MintingAccount == nil || l.cfg.MintingAccount.Owner != caller {
		return Configuration{}, ErrUnauthorized
	}
	next := u.apply(l.cfg)
	if err := next.Validate(); err != nil {
		return Configuration{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	batch := storage.NewBatch(l.db)
	defer batch.Discard()
	if err := l.stores.Config.Stage(batch, next); err != nil {
		return Configuration{}, err
	}
	if err := batch.Commit(); err != nil {
		return Configuration{}, fmt.Errorf("commit config: %w", err)
	}
	l.cfg = next
	l.logger.Info().Str("fee", next.TransferFee.String()).Uint32("max_memo", next.MaxMemoLength).Msg("Configuration updated")
	return next, nil
}

// precheck runs operation-specific validation right after the memo check,
// ahead of the freshness, duplicate and fee checks. It runs under the
// ledger lock and may fill in op fields that depend on ledger state.
type precheck func(now uint64) (*Rejection, error)

// submit runs the validation pipeline and applies op. A non-nil Rejection
// means nothing was written.
func (l *Ledger) submit(op *operation, check precheck) (uint64, *Rejection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return 0, nil, ErrNotInitialized
	}
	now := l.now()
	cfg := l.cfg

	if len(op.Memo) > int(cfg.MaxMemoLength) {
		r := rejectGeneric(CodeMemoTooLong,
			fmt.Sprintf("memo length %d exceeds maximum %d", len(op.Memo), cfg.MaxMemoLength))
		return l.reject(op, r)
	}

	if check != nil {
		r, err := check(now)
		if err != nil {
			return 0, nil, err
		}
		if r != nil {
			return l.reject(op, *r)
		}
	}

	if r := checkCreatedAt(op.CreatedAt, now); r != nil {
		return l.reject(op, *r)
	}

	var fp *types.Hash
	if op.CreatedAt != nil {
		h, err := op.fingerprint()
		if err != nil {
			return 0, nil, err
		}
		pos, found, err := l.stores.Transactions.FindDuplicate(h)
		if err != nil {
			return 0, nil, err
		}
		if found {
			return l.reject(op, Rejection{Kind: KindDuplicate, DuplicateOf: uint64Ptr(pos)})
		}
		fp = &h
	}

	if op.Fee != nil && !op.Fee.Equal(cfg.TransferFee) {
		return l.reject(op, rejectBadFee(cfg.TransferFee))
	}


	tx, r, err := l.classify(op, cfg, now)
	if err != nil {
		return 0, nil, err
	}
	if r != nil {
		return l.reject(op, *r)
	}

	p := l.begin()
	defer p.discard()
	pos, err := p.record(tx, fp)
	if err != nil {
		return 0, nil, err
	}
	if err := p.commit(); err != nil {
		return 0, nil, err
	}

	l.logger.Debug().
		Str("kind", string(tx.Kind)).
		Uint64("position", pos).
		Str("amount", tx.Amount.String()).
		Msg("Transaction applied")
	return pos, nil, nil
}

func (l *Ledger) reject(op *operation, r Rejection) (uint64, *Rejection, error) {
	l.logger.Debug().
		Str("from", op.From.String()).
		Str("reason", string(r.Kind)).
		Msg("Transaction rejected")
	return 0, &r, nil
}

// checkCreatedAt validates a client timestamp against the ledger time.
// Every subtraction is guarded by a comparison.
func checkCreatedAt(createdAt *uint64, now uint64) *Rejection {
	if createdAt == nil {
		return nil
	}
	t := *createdAt
	if t > now && t-now > PermittedDrift {
		return &Rejection{Kind: KindCreatedInFuture, LedgerTime: uint64Ptr(now)}
	}
	if t < now && now-t > TransactionWindow+PermittedDrift {
		return &Rejection{Kind: KindTooOld}
	}
	return nil
}

// classify decides what op is and checks it can be paid for.
func (l *Ledger) classify(op *operation, cfg Configuration, now uint64) (*Transaction, *Rejection, error) {
	from := op.From
	fee := cfg.TransferFee
	tx := &Transaction{
		Amount:    op.Amount,
		Memo:      op.Memo,
		CreatedAt: op.CreatedAt,
		Timestamp: now,
	}
	minter := cfg.MintingAccount

	switch {
	case op.IsApproval:
		bal, err := l.stores.Balances.Balance(from)
		if err != nil {
			return nil, nil, err
		}
		if bal.Cmp(fee) < 0 {
			r := rejectGeneric(CodeApprovalFeeOwed,
				fmt.Sprintf("balance %s cannot pay the approval fee %s", bal, fee))
			return nil, &r, nil
		}
		tx.Kind = KindApprove
		tx.From = &from
		tx.Spender = op.Spender
		tx.Fee = &fee
		tx.ExpectedAllowance = op.ExpectedAllowance
		tx.ExpiresAt = op.ExpiresAt

	case minter != nil && from == *minter:
		tx.Kind = KindMint
		tx.To = op.To
		if op.Spender != nil {
			// Recorded so the allowance scan charges the spender.
			tx.From = &from
			tx.Spender = op.Spender
		}

	case minter != nil && op.To != nil && *op.To == *minter:
		if op.Amount.Cmp(fee) < 0 {
			return nil, &Rejection{Kind: KindBadBurn, MinBurnAmount: tokensPtr(fee)}, nil
		}
		bal, err := l.stores.Balances.Balance(from)
		if err != nil {
			return nil, nil, err
		}
		if bal.Cmp(op.Amount) < 0 {
			r := rejectInsufficientFunds(bal)
			return nil, &r, nil
		}
		tx.Kind = KindBurn
		tx.From = &from
		tx.Spender = op.Spender

	default:
		bal, err := l.stores.Balances.Balance(from)
		if err != nil {
			return nil, nil, err
		}
		if bal.Cmp(op.Amount.Add(fee)) < 0 {
			r := rejectInsufficientFunds(bal)
			return nil, &r, nil
		}
		tx.Kind = KindTransfer
		tx.From = &from
		tx.To = op.To
		tx.Spender = op.Spender
		tx.Fee = &fee
	}
	return tx, nil, nil
}

// deltas returns the signed balance change per account and the supply
// change implied by tx.
func deltas(tx *Transaction) (map[types.Account]*big.Int, *big.Int) {
	accts := make(map[types.Account]*big.Int)
	supply := new(big.Int)
	add := func(a types.Account, v *big.Int) {
		if d, ok := accts[a]; ok {
			d.Add(d, v)
			return
		}
		accts[a] = new(big.Int).Set(v)
	}
	amount := tx.Amount.Big()
	fee := new(big.Int)
	if tx.Fee != nil {
		fee = tx.Fee.Big()
	}

	switch tx.Kind {
	case KindMint:
		add(*tx.To, amount)
		supply.Add(supply, amount)
	case KindBurn:
		add(*tx.From, new(big.Int).Neg(amount))
		supply.Sub(supply, amount)
	case KindTransfer:
		add(*tx.To, amount)
		add(*tx.From, new(big.Int).Neg(new(big.Int).Add(amount, fee)))
		supply.Sub(supply, fee)
	case KindApprove:
		add(*tx.From, new(big.Int).Neg(fee))
		supply.Sub(supply, fee)
	}
	return accts, supply
}

// pending stages one or more transactions into a single batch, tracking
// the balances it has already changed.
type pending struct {
	l        *Ledger
	batch    storage.Batch
	next     uint64
	balances map[types.Account]types.Tokens
	supply   *types.Tokens
	touched  []types.Account
}

func (l *Ledger) begin() *pending {
	return &pending{
		l:        l,
		batch:    storage.NewBatch(l.db),
		next:     l.next,
		balances: make(map[types.Account]types.Tokens),
	}
}

func (p *pending) balance(a types.Account) (types.Tokens, error) {
	if v, ok := p.balances[a]; ok {
		return v, nil
	}
	return p.l.stores.Balances.Balance(a)
}

func (p *pending) totalSupply() (types.Tokens, error) {
	if p.supply != nil {
		return *p.supply, nil
	}
	return p.l.stores.Balances.TotalSupply()
}

// record stages tx with its balance, supply and staking log effects.
func (p *pending) record(tx *Transaction, fp *types.Hash) (uint64, error) {
	pos := p.next
	stores := p.l.stores
	if err := stores.Transactions.StageAppend(p.batch, pos, tx, fp); err != nil {
		return 0, err
	}

	accts, supplyDelta := deltas(tx)

	supply, err := p.totalSupply()
	if err != nil {
		return 0, err
	}
	newSupply, err := types.TokensFromBig(new(big.Int).Add(supply.Big(), supplyDelta))
	if err != nil {
		return 0, p.violation(tx, "total supply", err)
	}
	if err := stores.Balances.StageTotalSupply(p.batch, newSupply); err != nil {
		return 0, err
	}
	p.supply = &newSupply

	order := make([]types.Account, 0, len(accts))
	for a := range accts {
		order = append(order, a)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Compare(order[j]) < 0 })

	for _, a := range order {
		prev, err := p.balance(a)
		if err != nil {
			return 0, err
		}
		next, err := types.TokensFromBig(new(big.Int).Add(prev.Big(), accts[a]))
		if err != nil {
			return 0, p.violation(tx, "balance of "+a.String(), err)
		}
		if err := stores.Balances.StageBalance(p.batch, a, next); err != nil {
			return 0, err
		}
		p.balances[a] = next
		p.touched = append(p.touched, a)

		if tx.Kind == KindApprove || stores.Staking == nil {
			continue
		}
		entry := staking.Entry{
			Account:        a,
			Timestamp:      tx.Timestamp,
			PreviousAmount: prev,
			CurrentAmount:  next,
		}
		if err := stores.Staking.Stage(p.batch, pos, entry); err != nil {
			return 0, err
		}
	}

	p.next++
	return pos, nil
}

func (p *pending) violation(tx *Transaction, what string, err error) error {
	p.l.logger.Error().
		Str("kind", string(tx.Kind)).
		Str("target", what).
		Err(err).
		Msg("Invariant violation, aborting apply")
	return fmt.Errorf("%w: %s would go negative: %v", ErrInvariantViolation, what, err)
}

func (p *pending) commit() error {
	if err := p.batch.Commit(); err != nil {
		return fmt.Errorf("commit ledger batch: %w", err)
	}
	p.l.next = p.next
	if len(p.touched) > 0 {
		for _, fn := range p.l.listeners {
			fn(p.touched)
		}
	}
	return nil
}

func (p *pending) discard() {
	p.batch.Discard()
}
