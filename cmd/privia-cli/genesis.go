package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/privia-labs/privia/config"
	"github.com/privia-labs/privia/pkg/types"
)

func cmdGenesis(args []string, network string) {
	if len(args) < 1 || args[0] != "init" {
		fatal("Usage: privia-cli genesis init --out <file> [--minter <acct>] [--alloc <acct>=<units>,...]")
	}
	fs := flag.NewFlagSet("genesis init", flag.ExitOnError)
	out := fs.String("out", "genesis.json", "Output file")
	minter := fs.String("minter", "", "Minting account")
	alloc := fs.String("alloc", "", "Initial balances in base units, acct=amount,...")
	fs.Parse(args[1:])

	g := config.GenesisFor(config.NetworkType(network))
	if *minter != "" {
		g.Token.MintingAccount = mustAccount(*minter).String()
	}
	if *alloc != "" {
		for _, pair := range strings.Split(*alloc, ",") {
			acct, amount, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				fatal("invalid alloc %q, want acct=amount", pair)
			}
			t, err := types.ParseTokens(amount)
			if err != nil {
				fatal("%v", err)
			}
			g.Alloc[mustAccount(acct).String()] = t
		}
	}
	if err := g.Validate(); err != nil {
		fatal("invalid genesis: %v", err)
	}
	if err := g.Save(*out); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Genesis for %s written to %s\n", g.ChainID, *out)
}
