// privia-cli is a command-line client for interacting with a priviad node.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/privia-labs/privia/config"
	"github.com/privia-labs/privia/internal/rpcclient"
	"github.com/privia-labs/privia/pkg/types"
)

// keystoreDir returns the keystore path matching priviad's layout:
// <datadir>/<network>/keystore
func keystoreDir(dataDir, network string) string {
	return filepath.Join(dataDir, network, "keystore")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := ""
	dataDir := config.DefaultDataDir()
	network := string(config.Mainnet)

	// Scan for --rpc, --datadir and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--testnet":
			network = string(config.Testnet)
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if network == string(config.Testnet) {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}
	if rpcURL == "" {
		port := config.Default(config.NetworkType(network)).RPC.Port
		rpcURL = "http://127.0.0.1:" + strconv.Itoa(port)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	ksDir := keystoreDir(dataDir, network)
	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "info":
		cmdInfo(client)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "tx":
		cmdTx(client, cmdArgs)
	case "transfer":
		cmdTransfer(client, cmdArgs, ksDir)
	case "approve":
		cmdApprove(client, cmdArgs, ksDir)
	case "transfer-from":
		cmdTransferFrom(client, cmdArgs, ksDir)
	case "allowance":
		cmdAllowance(client, cmdArgs)
	case "split":
		cmdSplit(client, cmdArgs, ksDir)
	case "set-fee":
		cmdSetFee(client, cmdArgs, ksDir)
	case "score":
		cmdScore(client, cmdArgs)
	case "rewards":
		cmdRewards(client, cmdArgs)
	case "discount":
		cmdDiscount(client, cmdArgs)
	case "cycle":
		cmdCycle(client, cmdArgs)
	case "staking":
		cmdStaking(client, cmdArgs)
	case "wallet":
		cmdWallet(cmdArgs, ksDir)
	case "genesis":
		cmdGenesis(cmdArgs, network)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: privia-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8745, testnet 8845)
  --datadir <path>    Data directory (default: ~/.privia)
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network testnet

Commands:
  info                            Show token metadata and supply
  balance <account>               Show account balance
  tx <position> [count]           Show ledger transactions
  transfer --wallet <w> --to <acct> --amount <amt>
                                  Transfer tokens
  approve --wallet <w> --spender <acct> --amount <amt>
                                  Approve a spender
  transfer-from --wallet <w> --from <acct> --to <acct> --amount <amt>
                                  Spend an allowance
  allowance <account> <spender>   Show an allowance
  split --wallet <w> --to <acct>  Send half the balance to an account
  set-fee --wallet <w> --fee <amt>
                                  Change the transfer fee (minter only)

  score <account>                 Show the current staking score
  rewards <account> <from> <to>   Integrate a balance over a time range
  discount <account> <price>      Show the discount an account earns
  cycle [current|next-voting|<n>] Show cycle boundaries
  staking log <account> [from] [to]
                                  Show the staking log of an account

  wallet create --name <n>        Create a new wallet
  wallet import --name <n> --mnemonic "..."
                                  Import wallet from mnemonic
  wallet list                     List wallets
  wallet address --wallet <w>     List wallet addresses
  wallet new-address --wallet <w> Derive a new address

  genesis init --out <file> [--minter <acct>] [--alloc <acct>=<amt>,...]
                                  Write a genesis file for the network
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
