// starnotary-cli is a command-line client for a starnotaryd node.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/starnotary/config"
	"github.com/Klingon-tech/starnotary/internal/rpc"
	"github.com/Klingon-tech/starnotary/internal/rpcclient"
	"github.com/Klingon-tech/starnotary/pkg/block"
	"github.com/Klingon-tech/starnotary/pkg/star"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

// globalOpts are the flags accepted before the subcommand.
type globalOpts struct {
	rpcURL  string
	dataDir string
	network config.NetworkType
}

// keysDir returns the wallet directory matching starnotaryd's layout:
// <datadir>/<network>/keys
func (g globalOpts) keysDir() string {
	cfg := config.Default(g.network)
	cfg.DataDir = g.dataDir
	return cfg.KeysDir()
}

// parseGlobal consumes --rpc, --datadir, --network and --testnet from the
// front of args and returns the remaining arguments.
func parseGlobal(args []string) (globalOpts, []string) {
	opts := globalOpts{dataDir: config.DefaultDataDir(), network: config.Mainnet}

	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			opts.rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			opts.rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			opts.dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			opts.dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			opts.network = config.NetworkType(strings.ToLower(args[1]))
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			opts.network = config.NetworkType(strings.ToLower(args[0][len("--network="):]))
			args = args[1:]
		case args[0] == "--testnet":
			opts.network = config.Testnet
			args = args[1:]
		default:
			return opts.withDefaults(), args
		}
	}
	return opts.withDefaults(), args
}

func (g globalOpts) withDefaults() globalOpts {
	if g.network != config.Testnet {
		g.network = config.Mainnet
	}
	if g.rpcURL == "" {
		g.rpcURL = fmt.Sprintf("http://127.0.0.1:%d/", config.Default(g.network).RPC.Port)
	}
	return g
}

func main() {
	opts, args := parseGlobal(os.Args[1:])
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	// Set address HRP based on network.
	types.SetAddressHRP(config.GenesisFor(opts.network).AddressHRP)

	client := rpcclient.New(opts.rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "height":
		cmdHeight(client)
	case "block":
		cmdBlock(client, cmdArgs)
	case "validate":
		cmdValidate(client)
	case "stars":
		cmdStars(client, cmdArgs)
	case "request":
		cmdRequest(client, cmdArgs)
	case "submit":
		cmdSubmit(client, cmdArgs, opts.keysDir())
	case "wallet":
		cmdWallet(cmdArgs, opts.keysDir())
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: starnotary-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8000/, testnet 8100)
  --datadir <path>    Data directory (default: ~/.starnotary)
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network testnet

Commands:
  status                          Show ledger status
  height                          Show the current chain height
  block <hash|height>             Show block details and its star
  validate                        Check every block hash and link
  stars <address>                 List the stars registered by an address
  request <address>               Ask the node for an ownership message
  submit --wallet <w> [--ra <ra>] [--dec <dec>] [--story <text>] [--mag <m>] [--cen <c>] [--index <i>]
                                  Request, sign and submit a star in one step

  wallet create --name <n>        Create a new wallet
  wallet import --name <n> --mnemonic "..."
                                  Import a wallet from its mnemonic
  wallet list                     List wallets
  wallet address --wallet <w>     List wallet addresses
  wallet new-address --wallet <w> [--label <l>]
                                  Derive another owner address
  wallet sign --wallet <w> [--index <i>] <message>
                                  Sign an ownership message offline
`)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var info rpc.ChainInfoResult
	if err := client.Call("chain_getInfo", nil, &info); err != nil {
		fatal("chain_getInfo: %v", err)
	}

	fmt.Printf("Chain:   %s (%s)\n", info.ChainID, info.ChainName)
	fmt.Printf("Height:  %d\n", info.Height)
	fmt.Printf("Tip:     %s\n", info.TipHash)
	fmt.Printf("Genesis: %s\n", info.GenesisHash)
	fmt.Printf("HRP:     %s\n", info.AddressHRP)
	fmt.Printf("Window:  %s\n", time.Duration(info.Window)*time.Second)
}

func cmdHeight(client *rpcclient.Client) {
	var res rpc.HeightResult
	if err := client.Call("chain_getHeight", nil, &res); err != nil {
		fatal("chain_getHeight: %v", err)
	}
	fmt.Println(res.Height)
}

// ── block ───────────────────────────────────────────────────────────────

func cmdBlock(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: starnotary-cli block <hash|height>")
	}

	arg := args[0]
	var blk block.Block

	// Try as height first (pure number).
	if height, err := strconv.ParseUint(arg, 10, 64); err == nil {
		if err := client.Call("chain_getBlockByHeight", rpc.HeightParam{Height: &height}, &blk); err != nil {
			fatal("chain_getBlockByHeight: %v", err)
		}
	} else {
		if err := client.Call("chain_getBlockByHash", rpc.HashParam{Hash: arg}, &blk); err != nil {
			fatal("chain_getBlockByHash: %v", err)
		}
	}

	fmt.Printf("Height:    %d\n", blk.Height)
	fmt.Printf("Hash:      %s\n", blk.Hash)
	fmt.Printf("Prev:      %s\n", blk.PreviousBlockHash)
	ts := time.Unix(int64(blk.Time), 0).UTC()
	fmt.Printf("Time:      %s\n", ts.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("Valid:     %t\n", blk.Validate())

	if blk.IsGenesis() {
		raw, err := blk.RawPayload()
		if err != nil {
			fatal("decode genesis body: %v", err)
		}
		fmt.Printf("Genesis:   %s\n", raw)
		return
	}

	fmt.Printf("Owner:     %s\n", blk.Owner)
	var s star.Star
	if err := blk.DecodePayload(&s); err != nil {
		fmt.Printf("Payload:   undecodable (%v)\n", err)
		return
	}
	printStar("", s)
}

func cmdValidate(client *rpcclient.Client) {
	var res rpc.ValidateResult
	if err := client.Call("chain_validate", nil, &res); err != nil {
		fatal("chain_validate: %v", err)
	}
	if res.Valid {
		fmt.Println("Chain is valid.")
		return
	}
	for _, e := range res.Errors {
		fmt.Printf("  %s\n", e)
	}
	os.Exit(2)
}

// ── stars ───────────────────────────────────────────────────────────────

func cmdStars(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: starnotary-cli stars <address>")
	}

	var res rpc.StarsResult
	err := client.Call("star_getByWallet", rpc.AddressParam{Address: args[0]}, &res)
	if code, ok := rpcclient.ErrorCode(err); ok && code == rpc.CodeAddressNotFound {
		fmt.Println("No stars registered.")
		return
	}
	if err != nil {
		fatal("star_getByWallet: %v", err)
	}

	for i, s := range res.Stars {
		fmt.Printf("[%d]\n", i)
		printStar("  ", s)
	}
}

func cmdRequest(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: starnotary-cli request <address>")
	}

	var res rpc.ValidationRequestResult
	if err := client.Call("star_requestValidation", rpc.AddressParam{Address: args[0]}, &res); err != nil {
		fatal("star_requestValidation: %v", err)
	}
	fmt.Println(res.Message)
	fmt.Fprintf(os.Stderr, "Sign and submit within %s.\n", time.Duration(res.Window)*time.Second)
}

// ── submit ──────────────────────────────────────────────────────────────

func cmdSubmit(client *rpcclient.Client, args []string, keysDir string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Address index inside the wallet")
	ra := fs.String("ra", "", "Right ascension")
	dec := fs.String("dec", "", "Declination")
	mag := fs.String("mag", "", "Magnitude")
	cen := fs.String("cen", "", "Constellation")
	story := fs.String("story", "", "Story (up to 500 bytes)")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: starnotary-cli submit --wallet <w> [--ra <ra>] [--dec <dec>] [--story <text>]")
	}
	s := star.Star{RA: *ra, Dec: *dec, Mag: *mag, Cen: *cen, Story: *story}
	if err := s.Validate(); err != nil {
		fatal("%v", err)
	}

	signer := openSigner(keysDir, *walletName, uint32(*index))
	address := signer.Address().String()

	var vr rpc.ValidationRequestResult
	if err := client.Call("star_requestValidation", rpc.AddressParam{Address: address}, &vr); err != nil {
		fatal("star_requestValidation: %v", err)
	}

	var blk block.Block
	err := client.Call("star_submit", rpc.SubmitStarParam{
		Address:   address,
		Message:   vr.Message,
		Signature: signer.SignMessage(vr.Message),
		Star:      &s,
	}, &blk)
	if err != nil {
		fatal("star_submit: %v", err)
	}

	fmt.Printf("Star registered at height %d\n", blk.Height)
	fmt.Printf("Block:  %s\n", blk.Hash)
	fmt.Printf("Owner:  %s\n", address)
}

func printStar(indent string, s star.Star) {
	fmt.Printf("%sRA:    %s\n", indent, s.RA)
	fmt.Printf("%sDec:   %s\n", indent, s.Dec)
	if s.Mag != "" {
		fmt.Printf("%sMag:   %s\n", indent, s.Mag)
	}
	if s.Cen != "" {
		fmt.Printf("%sCen:   %s\n", indent, s.Cen)
	}
	story, _ := json.Marshal(s.Story)
	fmt.Printf("%sStory: %s\n", indent, story)
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
