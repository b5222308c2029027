package main

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/privia-labs/privia/internal/ledger"
	"github.com/privia-labs/privia/internal/rpcclient"
)

// ── info ────────────────────────────────────────────────────────────────

func cmdInfo(client *rpcclient.Client) {
	md, err := client.Metadata()
	if err != nil {
		fatal("icrc1_metadata: %v", err)
	}
	supply, err := client.TotalSupply()
	if err != nil {
		fatal("icrc1_totalSupply: %v", err)
	}
	minter, err := client.MintingAccount()
	if err != nil {
		fatal("icrc1_mintingAccount: %v", err)
	}
	decimals := tokenDecimals(client)

	for _, e := range md {
		fmt.Printf("%-20s %v\n", e.Key+":", e.Value)
	}
	fmt.Printf("%-20s %s\n", "total supply:", formatAmount(supply, decimals))
	if minter != nil {
		fmt.Printf("%-20s %s\n", "minting account:", minter)
	}
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: privia-cli balance <account>")
	}
	acct := mustAccount(args[0])
	bal, err := client.BalanceOf(acct)
	if err != nil {
		fatal("icrc1_balanceOf: %v", err)
	}
	fmt.Printf("Account: %s\n", acct)
	fmt.Printf("Balance: %s\n", formatAmount(bal, tokenDecimals(client)))
}

// ── tx ──────────────────────────────────────────────────────────────────

func cmdTx(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: privia-cli tx <position> [count]")
	}
	start, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fatal("invalid position %q", args[0])
	}
	count := uint64(1)
	if len(args) > 1 {
		if count, err = strconv.ParseUint(args[1], 10, 64); err != nil {
			fatal("invalid count %q", args[1])
		}
	}
	res, err := client.Transactions(start, count)
	if err != nil {
		fatal("ledger_getTransactions: %v", err)
	}
	decimals := tokenDecimals(client)
	fmt.Printf("Log length: %d\n", res.LogLength)
	for _, tx := range res.Transactions {
		fmt.Printf("\n#%d %s at %s\n", tx.Position, tx.Kind, time.Unix(0, int64(tx.Timestamp)).UTC().Format(time.RFC3339))
		if tx.From != nil {
			fmt.Printf("  From:    %s\n", tx.From)
		}
		if tx.To != nil {
			fmt.Printf("  To:      %s\n", tx.To)
		}
		if tx.Spender != nil {
			fmt.Printf("  Spender: %s\n", tx.Spender)
		}
		fmt.Printf("  Amount:  %s\n", formatAmount(tx.Amount, decimals))
		if tx.Fee != nil {
			fmt.Printf("  Fee:     %s\n", formatAmount(*tx.Fee, decimals))
		}
		if len(tx.Memo) > 0 {
			fmt.Printf("  Memo:    %x\n", tx.Memo)
		}
	}
}

// ── transfer ────────────────────────────────────────────────────────────

func cmdTransfer(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Wallet address index")
	to := fs.String("to", "", "Recipient account")
	amount := fs.String("amount", "", "Amount")
	memo := fs.String("memo", "", "Memo text")
	fs.Parse(args)

	if *to == "" || *amount == "" {
		fatal("Usage: privia-cli transfer --wallet <w> --to <acct> --amount <amt>")
	}
	txArgs := ledger.TransferArgs{
		To:        mustAccount(*to),
		Amount:    mustAmount(client, *amount),
		CreatedAt: createdAt(),
	}
	if *memo != "" {
		txArgs.Memo = []byte(*memo)
	}
	signer := loadSigner(ksDir, *walletName, uint32(*index))
	pos, err := client.Transfer(signer, txArgs)
	if err != nil {
		reportRejection("icrc1_transfer", err)
	}
	fmt.Printf("Transfer recorded at position %d\n", pos)
}

// ── approve ─────────────────────────────────────────────────────────────

func cmdApprove(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Wallet address index")
	spender := fs.String("spender", "", "Spender account")
	amount := fs.String("amount", "", "Allowance")
	expires := fs.Duration("expires", 0, "Allowance lifetime (0 = never)")
	fs.Parse(args)

	if *spender == "" || *amount == "" {
		fatal("Usage: privia-cli approve --wallet <w> --spender <acct> --amount <amt> [--expires 24h]")
	}
	approveArgs := ledger.ApproveArgs{
		Spender:   mustAccount(*spender),
		Amount:    mustAmount(client, *amount),
		CreatedAt: createdAt(),
	}
	if *expires > 0 {
		at := uint64(time.Now().Add(*expires).UnixNano())
		approveArgs.ExpiresAt = &at
	}
	signer := loadSigner(ksDir, *walletName, uint32(*index))
	pos, err := client.Approve(signer, approveArgs)
	if err != nil {
		reportRejection("icrc2_approve", err)
	}
	fmt.Printf("Approval recorded at position %d\n", pos)
}

// ── transfer-from ───────────────────────────────────────────────────────

func cmdTransferFrom(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("transfer-from", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name (the spender)")
	index := fs.Uint("index", 0, "Wallet address index")
	from := fs.String("from", "", "Source account")
	to := fs.String("to", "", "Recipient account")
	amount := fs.String("amount", "", "Amount")
	fs.Parse(args)

	if *from == "" || *to == "" || *amount == "" {
		fatal("Usage: privia-cli transfer-from --wallet <w> --from <acct> --to <acct> --amount <amt>")
	}
	tfArgs := ledger.TransferFromArgs{
		From:      mustAccount(*from),
		To:        mustAccount(*to),
		Amount:    mustAmount(client, *amount),
		CreatedAt: createdAt(),
	}
	signer := loadSigner(ksDir, *walletName, uint32(*index))
	pos, err := client.TransferFrom(signer, tfArgs)
	if err != nil {
		reportRejection("icrc2_transferFrom", err)
	}
	fmt.Printf("Transfer recorded at position %d\n", pos)
}

// ── allowance ───────────────────────────────────────────────────────────

func cmdAllowance(client *rpcclient.Client, args []string) {
	if len(args) < 2 {
		fatal("Usage: privia-cli allowance <account> <spender>")
	}
	a, err := client.Allowance(mustAccount(args[0]), mustAccount(args[1]))
	if err != nil {
		fatal("icrc2_allowance: %v", err)
	}
	fmt.Printf("Allowance: %s\n", formatAmount(a.Allowance, tokenDecimals(client)))
	if a.ExpiresAt != nil {
		fmt.Printf("Expires:   %s\n", time.Unix(0, int64(*a.ExpiresAt)).UTC().Format(time.RFC3339))
	}
}

// ── split ───────────────────────────────────────────────────────────────

func cmdSplit(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Wallet address index")
	to := fs.String("to", "", "Recipient account")
	fs.Parse(args)

	if *to == "" {
		fatal("Usage: privia-cli split --wallet <w> --to <acct>")
	}
	target := mustAccount(*to)
	signer := loadSigner(ksDir, *walletName, uint32(*index))
	pos, err := client.SplitBalance(signer, nil, target)
	if err != nil {
		reportRejection("ledger_splitBalance", err)
	}
	fmt.Printf("Split recorded at position %d\n", pos)
}

// ── set-fee ─────────────────────────────────────────────────────────────

func cmdSetFee(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("set-fee", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet holding the minting account")
	index := fs.Uint("index", 0, "Wallet address index")
	fee := fs.String("fee", "", "New transfer fee")
	fs.Parse(args)

	if *fee == "" {
		fatal("Usage: privia-cli set-fee --wallet <w> --fee <amt>")
	}
	newFee := mustAmount(client, *fee)
	signer := loadSigner(ksDir, *walletName, uint32(*index))
	cfg, err := client.UpdateConfig(signer, ledger.ConfigUpdate{TransferFee: &newFee})
	if err != nil {
		fatal("ledger_updateConfig: %v", err)
	}
	fmt.Printf("Transfer fee is now %s\n", formatAmount(cfg.TransferFee, cfg.Decimals))
}

// createdAt stamps a request so the ledger can deduplicate retries.
func createdAt() *uint64 {
	now := uint64(time.Now().UnixNano())
	return &now
}
