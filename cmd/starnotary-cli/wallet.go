package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Klingon-tech/starnotary/internal/wallet"
	"github.com/Klingon-tech/starnotary/pkg/crypto"
	"golang.org/x/term"
)

// stdinReader is shared so piped passwords can be read line by line.
var stdinReader = bufio.NewReader(os.Stdin)

func cmdWallet(args []string, keysDir string) {
	if len(args) < 1 {
		fatal("Usage: starnotary-cli wallet <create|import|list|address|new-address|sign> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], keysDir)
	case "import":
		cmdWalletImport(args[1:], keysDir)
	case "list":
		cmdWalletList(keysDir)
	case "address":
		cmdWalletAddress(args[1:], keysDir)
	case "new-address":
		cmdWalletNewAddress(args[1:], keysDir)
	case "sign":
		cmdWalletSign(args[1:], keysDir)
	default:
		fatal("Unknown wallet command: %s", args[0])
	}
}

func openKeystore(keysDir string) *wallet.Keystore {
	ks, err := wallet.NewKeystore(keysDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	return ks
}

func cmdWalletCreate(args []string, keysDir string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: starnotary-cli wallet create --name <name>")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	password := readNewPassword()
	acct, err := openKeystore(keysDir).Create(*name, mnemonic, password, wallet.DefaultParams())
	if err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Printf("Wallet %q created.\n\n", *name)
	fmt.Println("Recovery phrase (write it down, it is shown only once):")
	fmt.Printf("  %s\n\n", mnemonic)
	fmt.Printf("Address: %s\n", acct.Address)
}

func cmdWalletImport(args []string, keysDir string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 recovery phrase")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: starnotary-cli wallet import --name <name> --mnemonic \"...\"")
	}
	if !wallet.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	password := readNewPassword()
	acct, err := openKeystore(keysDir).Create(*name, *mnemonic, password, wallet.DefaultParams())
	if err != nil {
		fatal("import wallet: %v", err)
	}

	fmt.Printf("Wallet %q imported.\n", *name)
	fmt.Printf("Address: %s\n", acct.Address)
}

func cmdWalletList(keysDir string) {
	names, err := openKeystore(keysDir).List()
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

func cmdWalletAddress(args []string, keysDir string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: starnotary-cli wallet address --wallet <name>")
	}

	accounts, err := openKeystore(keysDir).ListAccounts(*name)
	if err != nil {
		fatal("list addresses: %v", err)
	}
	for _, a := range accounts {
		label := a.Name
		if label == "" {
			label = "-"
		}
		fmt.Printf("%4d  %-12s %s\n", a.Index, label, a.Address)
	}
}

func cmdWalletNewAddress(args []string, keysDir string) {
	fs := flag.NewFlagSet("wallet new-address", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	label := fs.String("label", "", "Optional address label")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: starnotary-cli wallet new-address --wallet <name> [--label <l>]")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	acct, err := openKeystore(keysDir).NewAccount(*name, password, *label)
	if err != nil {
		fatal("new address: %v", err)
	}
	fmt.Printf("Index:   %d\n", acct.Index)
	fmt.Printf("Address: %s\n", acct.Address)
}

// cmdWalletSign signs a message without contacting the node, for owners
// who request the ownership message on one machine and sign on another.
func cmdWalletSign(args []string, keysDir string) {
	fs := flag.NewFlagSet("wallet sign", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Address index inside the wallet")
	fs.Parse(args)

	if *name == "" || fs.NArg() != 1 {
		fatal("Usage: starnotary-cli wallet sign --wallet <name> [--index <i>] <message>")
	}

	signer := openSigner(keysDir, *name, uint32(*index))
	fmt.Printf("Address:   %s\n", signer.Address())
	fmt.Printf("Signature: %s\n", signer.SignMessage(fs.Arg(0)))
}

// openSigner prompts for the wallet password and returns the owner key at index.
func openSigner(keysDir, name string, index uint32) *crypto.PrivateKey {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	w, err := openKeystore(keysDir).Open(name, password)
	if errors.Is(err, wallet.ErrWrongPassword) {
		fatal("wrong password for wallet %q", name)
	}
	if err != nil {
		fatal("open wallet: %v", err)
	}
	signer, err := w.Signer(index)
	if err != nil {
		fatal("derive key: %v", err)
	}
	return signer
}

func readNewPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if !bytes.Equal(password, confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}
	return password
}

// readPassword reads a password without echo. When stdin is not a
// terminal it reads one line instead.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdinReader.ReadString('\n')
		fmt.Fprintln(os.Stderr)
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}
