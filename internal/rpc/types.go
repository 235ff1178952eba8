package rpc

import "github.com/Klingon-tech/starnotary/pkg/star"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000

	// Ledger-specific codes.
	CodeTimeout          = -32001
	CodeInvalidSignature = -32002
	CodeInvalidMessage   = -32003
	CodeAddressNotFound  = -32004
	CodeInvalidBlock     = -32005
	CodeRateLimited      = -32029
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// HashParam is used by endpoints that take a single hash.
type HashParam struct {
	Hash string `json:"hash"`
}

// HeightParam is used by endpoints that take a block height.
type HeightParam struct {
	Height *uint64 `json:"height"`
}

// AddressParam is used by endpoints that take a wallet address.
type AddressParam struct {
	Address string `json:"address"`
}

// SubmitStarParam is used by star_submit.
type SubmitStarParam struct {
	Address   string     `json:"address"`
	Message   string     `json:"message"`
	Signature string     `json:"signature"`
	Star      *star.Star `json:"star"`
}

// ── Result types ────────────────────────────────────────────────────────

// ChainInfoResult is returned by chain_getInfo.
type ChainInfoResult struct {
	ChainID     string `json:"chain_id"`
	ChainName   string `json:"chain_name"`
	Height      int64  `json:"height"`
	TipHash     string `json:"tip_hash"`
	GenesisHash string `json:"genesis_hash"`
	AddressHRP  string `json:"address_hrp"`
	Window      int64  `json:"window"` // Seconds an ownership message stays valid.
}

// HeightResult is returned by chain_getHeight.
type HeightResult struct {
	Height int64 `json:"height"`
}

// ValidateResult is returned by chain_validate.
type ValidateResult struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	Tampered    []uint64 `json:"tampered"`
	BrokenLinks []uint64 `json:"broken_links"`
}

// ValidationRequestResult is returned by star_requestValidation.
type ValidationRequestResult struct {
	Address string `json:"address"`
	Message string `json:"message"`
	Window  int64  `json:"window"`
}

// StarsResult is returned by star_getByWallet.
type StarsResult struct {
	Address string      `json:"address"`
	Stars   []star.Star `json:"stars"`
}
