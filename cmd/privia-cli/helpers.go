package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/privia-labs/privia/internal/rpcclient"
	"github.com/privia-labs/privia/internal/wallet"
	"github.com/privia-labs/privia/pkg/types"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

// formatAmount renders base units with the token's decimals.
func formatAmount(t types.Tokens, decimals uint8) string {
	return decimal.NewFromBigInt(t.Big(), -int32(decimals)).StringFixed(int32(decimals))
}

// parseAmount converts a decimal string to base units.
func parseAmount(s string, decimals uint8) (types.Tokens, error) {
	if s == "" {
		return types.Tokens{}, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return types.Tokens{}, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return types.Tokens{}, fmt.Errorf("negative amount")
	}
	units := d.Shift(int32(decimals))
	if !units.Equal(units.Truncate(0)) {
		return types.Tokens{}, fmt.Errorf("too many decimal places (max %d)", decimals)
	}
	return types.TokensFromBig(units.BigInt())
}

// tokenDecimals asks the node for the token's decimals.
func tokenDecimals(client *rpcclient.Client) uint8 {
	d, err := client.Decimals()
	if err != nil {
		fatal("icrc1_decimals: %v", err)
	}
	return d
}

func mustAccount(s string) types.Account {
	a, err := types.ParseAccount(s)
	if err != nil {
		fatal("invalid account %q: %v", s, err)
	}
	return a
}

func mustAmount(client *rpcclient.Client, s string) types.Tokens {
	t, err := parseAmount(s, tokenDecimals(client))
	if err != nil {
		fatal("%v", err)
	}
	return t
}

// loadSigner unlocks identity index of a wallet.
func loadSigner(ksDir, name string, index uint32) *wallet.HDKey {
	if name == "" {
		fatal("--wallet is required")
	}
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	key, err := ks.Signer(name, password, index)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	return key
}

// reportRejection prints the ledger's reason when err is a rejection.
func reportRejection(method string, err error) {
	var rpcErr *rpcclient.RPCError
	if errors.As(err, &rpcErr) {
		if r, ok := rpcErr.Rejection(); ok {
			fatal("%s rejected: %s", method, r)
		}
	}
	fatal("%s: %v", method, err)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}
