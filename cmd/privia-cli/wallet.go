package main

import (
	"flag"
	"fmt"

	"github.com/privia-labs/privia/internal/wallet"
)

func cmdWallet(args []string, ksDir string) {
	if len(args) < 1 {
		fatal("Usage: privia-cli wallet <create|import|list|address|new-address> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], ksDir)
	case "import":
		cmdWalletImport(args[1:], ksDir)
	case "list":
		cmdWalletList(ksDir)
	case "address":
		cmdWalletAddress(args[1:], ksDir)
	case "new-address":
		cmdWalletNewAddress(args[1:], ksDir)
	default:
		fatal("Unknown wallet command: %s\nUsage: privia-cli wallet <create|import|list|address|new-address> [flags]", args[0])
	}
}

func cmdWalletCreate(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: privia-cli wallet create --name <name>")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	addr := storeWallet(ksDir, *name, mnemonic)
	fmt.Printf("\nWallet created: %s\n", *name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletImport(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: privia-cli wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !wallet.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	addr := storeWallet(ksDir, *name, *mnemonic)
	fmt.Printf("\nWallet imported: %s\n", *name)
	fmt.Printf("Address: %s\n", addr)
}

// storeWallet seals the seed of mnemonic under a password read from the
// terminal and records identity 0. It returns that identity's address.
func storeWallet(ksDir, name, mnemonic string) string {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer func() {
		for i := range seed {
			seed[i] = 0
		}
	}()

	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(name, seed, password); err != nil {
		fatal("create wallet: %v", err)
	}
	entry, err := ks.DeriveNext(name, password, "Default")
	if err != nil {
		fatal("derive address: %v", err)
	}
	return entry.Address
}

func cmdWalletList(ksDir string) {
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func cmdWalletAddress(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: privia-cli wallet address --wallet <name>")
	}
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	accounts, err := ks.ListAccounts(*name)
	if err != nil {
		fatal("list accounts: %v", err)
	}
	for _, a := range accounts {
		fmt.Printf("%4d  %-12s %s\n", a.Index, a.Name, a.Address)
	}
}

func cmdWalletNewAddress(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet new-address", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	label := fs.String("label", "", "Address label")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: privia-cli wallet new-address --wallet <name> [--label <l>]")
	}
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	entry, err := ks.DeriveNext(*name, password, *label)
	if err != nil {
		fatal("derive address: %v", err)
	}
	fmt.Printf("Address %d: %s\n", entry.Index, entry.Address)
}
