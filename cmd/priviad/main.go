// Privia ledger node daemon.
//
// Usage:
//
//	priviad [--testnet --datadir=... --genesis=...] Run node
//	priviad --help                                  Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/privia-labs/privia/config"
	"github.com/privia-labs/privia/internal/node"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	n, err := node.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		n.Stop()
		os.Exit(1)
	}
	if addr := n.RPCAddr(); addr != "" {
		fmt.Printf("Privia node running, RPC on %s\n", addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
}
