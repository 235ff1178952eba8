// derive_key.go prints the owner address for a hex-encoded private key file
// and, when a message is given, an ownership signature for it.
// Usage: go run scripts/derive_key.go [--testnet] <keyfile> [message]
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/starnotary/pkg/crypto"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "--testnet" {
		types.SetAddressHRP(types.TestnetHRP)
		args = args[1:]
	}
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key [--testnet] <keyfile> [message]")
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fail(err)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		fail(err)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		fail(err)
	}
	defer key.Zero()

	fmt.Printf("pubkey=%s\n", hex.EncodeToString(key.PublicKey()))
	fmt.Printf("address=%s\n", key.Address())
	if len(args) == 2 {
		fmt.Printf("signature=%s\n", key.SignMessage(args[1]))
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
