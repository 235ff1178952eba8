package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Klingon-tech/starnotary/config"
	"github.com/Klingon-tech/starnotary/internal/chain"
	klog "github.com/Klingon-tech/starnotary/internal/log"
	"github.com/Klingon-tech/starnotary/internal/storage"
	"github.com/Klingon-tech/starnotary/pkg/block"
	"github.com/Klingon-tech/starnotary/pkg/crypto"
	"github.com/Klingon-tech/starnotary/pkg/star"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

// testEnv holds all components for an RPC test.
type testEnv struct {
	server *Server
	chain  *chain.Chain
	clock  *chain.ManualClock
	db     *storage.MemoryDB
	key    *crypto.PrivateKey
	addr   string
	url    string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWithConfig(t, config.RPCConfig{})
}

func setupTestEnvWithConfig(t *testing.T, rpcCfg config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	clock := chain.NewManualClock(time.Unix(1700000000, 0))
	db := storage.NewMemory()
	ch, err := chain.New(db, config.MainnetGenesis(), chain.WithClock(clock))
	if err != nil {
		t.Fatalf("create chain: %v", err)
	}

	// Create and start RPC server on random port.
	srv := New("127.0.0.1:0", ch, rpcCfg)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server: srv,
		chain:  ch,
		clock:  clock,
		db:     db,
		key:    key,
		addr:   key.Address().String(),
		url:    fmt.Sprintf("http://%s/", srv.Addr()),
	}
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

// decodeResult re-decodes a generic result into target.
func decodeResult(t *testing.T, resp Response, target interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
}

func wantErrorCode(t *testing.T, resp Response, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error code %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %d (%s), want %d", resp.Error.Code, resp.Error.Message, code)
	}
}

// submitStar runs the request, sign, submit flow over RPC.
func (env *testEnv) submitStar(t *testing.T, s star.Star) Response {
	t.Helper()
	var vr ValidationRequestResult
	decodeResult(t, rpcCall(t, env.url, "star_requestValidation", AddressParam{Address: env.addr}), &vr)
	return rpcCall(t, env.url, "star_submit", SubmitStarParam{
		Address:   env.addr,
		Message:   vr.Message,
		Signature: env.key.SignMessage(vr.Message),
		Star:      &s,
	})
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRPC_ChainGetInfo(t *testing.T) {
	env := setupTestEnv(t)

	var info ChainInfoResult
	decodeResult(t, rpcCall(t, env.url, "chain_getInfo", nil), &info)

	gen := config.MainnetGenesis()
	if info.ChainID != gen.ChainID {
		t.Errorf("chain_id = %q, want %q", info.ChainID, gen.ChainID)
	}
	if info.Height != 0 {
		t.Errorf("height = %d, want 0", info.Height)
	}
	if info.TipHash != info.GenesisHash {
		t.Errorf("tip %s should equal genesis %s", info.TipHash, info.GenesisHash)
	}
	if info.AddressHRP != gen.AddressHRP {
		t.Errorf("address_hrp = %q, want %q", info.AddressHRP, gen.AddressHRP)
	}
	if info.Window != 300 {
		t.Errorf("window = %d, want 300", info.Window)
	}
}

func TestRPC_ChainGetHeight(t *testing.T) {
	env := setupTestEnv(t)

	var h HeightResult
	decodeResult(t, rpcCall(t, env.url, "chain_getHeight", nil), &h)
	if h.Height != 0 {
		t.Fatalf("height = %d, want 0", h.Height)
	}

	if resp := env.submitStar(t, star.Star{RA: "1", Dec: "2", Story: "a"}); resp.Error != nil {
		t.Fatalf("star_submit: %s", resp.Error.Message)
	}
	decodeResult(t, rpcCall(t, env.url, "chain_getHeight", nil), &h)
	if h.Height != 1 {
		t.Errorf("height = %d, want 1", h.Height)
	}
}

func TestRPC_ChainGetBlockByHeight(t *testing.T) {
	env := setupTestEnv(t)

	height := uint64(0)
	var blk block.Block
	decodeResult(t, rpcCall(t, env.url, "chain_getBlockByHeight", HeightParam{Height: &height}), &blk)

	if blk.Height != 0 {
		t.Errorf("height = %d, want 0", blk.Height)
	}
	if !blk.Validate() {
		t.Error("returned genesis block should validate")
	}
	if !blk.PreviousBlockHash.IsZero() {
		t.Error("genesis previousBlockHash should be null")
	}
}

func TestRPC_ChainGetBlockByHeight_Errors(t *testing.T) {
	env := setupTestEnv(t)

	height := uint64(5)
	wantErrorCode(t, rpcCall(t, env.url, "chain_getBlockByHeight", HeightParam{Height: &height}), CodeNotFound)
	wantErrorCode(t, rpcCall(t, env.url, "chain_getBlockByHeight", map[string]string{}), CodeInvalidParams)
	wantErrorCode(t, rpcCall(t, env.url, "chain_getBlockByHeight", nil), CodeInvalidParams)
}

func TestRPC_ChainGetBlockByHash(t *testing.T) {
	env := setupTestEnv(t)

	var sealed block.Block
	decodeResult(t, env.submitStar(t, star.Star{RA: "1", Dec: "2", Story: "a"}), &sealed)

	var blk block.Block
	decodeResult(t, rpcCall(t, env.url, "chain_getBlockByHash", HashParam{Hash: sealed.Hash.String()}), &blk)
	if blk != sealed {
		t.Errorf("chain_getBlockByHash = %+v, want %+v", blk, sealed)
	}
}

func TestRPC_ChainGetBlockByHash_Errors(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		hash string
		code int
	}{
		{"unknown", strings.Repeat("ab", 32), CodeNotFound},
		{"empty", "", CodeInvalidParams},
		{"short", "abcd", CodeInvalidParams},
		{"not hex", strings.Repeat("zz", 32), CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantErrorCode(t, rpcCall(t, env.url, "chain_getBlockByHash", HashParam{Hash: tt.hash}), tt.code)
		})
	}
}

func TestRPC_ChainValidate(t *testing.T) {
	env := setupTestEnv(t)
	for i := 0; i < 3; i++ {
		if resp := env.submitStar(t, star.Star{RA: fmt.Sprint(i), Dec: "0", Story: "s"}); resp.Error != nil {
			t.Fatalf("star_submit: %s", resp.Error.Message)
		}
	}

	var res ValidateResult
	decodeResult(t, rpcCall(t, env.url, "chain_validate", nil), &res)
	if !res.Valid || len(res.Errors) != 0 {
		t.Fatalf("untouched chain should be valid, got %+v", res)
	}
}

func TestRPC_StarRequestValidation(t *testing.T) {
	env := setupTestEnv(t)

	var vr ValidationRequestResult
	decodeResult(t, rpcCall(t, env.url, "star_requestValidation", AddressParam{Address: env.addr}), &vr)

	want := fmt.Sprintf("%s:%d:starRegistry", env.addr, env.clock.Now().Unix())
	if vr.Message != want {
		t.Errorf("message = %q, want %q", vr.Message, want)
	}
	if vr.Address != env.addr || vr.Window != 300 {
		t.Errorf("result = %+v", vr)
	}
}

func TestRPC_StarRequestValidation_InvalidAddress(t *testing.T) {
	env := setupTestEnv(t)

	wantErrorCode(t, rpcCall(t, env.url, "star_requestValidation", AddressParam{Address: "not-an-address"}), CodeInvalidParams)
	wantErrorCode(t, rpcCall(t, env.url, "star_requestValidation", AddressParam{}), CodeInvalidParams)

	// A testnet address on a mainnet node.
	types.SetAddressHRP(types.TestnetHRP)
	foreign := env.key.Address().String()
	types.SetAddressHRP(types.MainnetHRP)
	wantErrorCode(t, rpcCall(t, env.url, "star_requestValidation", AddressParam{Address: foreign}), CodeInvalidParams)
	wantErrorCode(t, rpcCall(t, env.url, "star_getByWallet", AddressParam{Address: foreign}), CodeInvalidParams)
}

func TestRPC_StarSubmit(t *testing.T) {
	env := setupTestEnv(t)
	s := star.Star{Dec: "1", RA: "2", Story: "x"}

	var blk block.Block
	decodeResult(t, env.submitStar(t, s), &blk)

	if blk.Height != 1 {
		t.Errorf("height = %d, want 1", blk.Height)
	}
	if !blk.Validate() {
		t.Error("submitted block should validate")
	}
	if blk.Owner != env.key.Address() {
		t.Errorf("owner = %s, want %s", blk.Owner, env.addr)
	}
	var got star.Star
	if err := blk.DecodePayload(&got); err != nil {
		t.Fatalf("DecodePayload() error: %v", err)
	}
	if got != s {
		t.Errorf("payload = %+v, want %+v", got, s)
	}
}

func TestRPC_StarSubmit_Timeout(t *testing.T) {
	env := setupTestEnv(t)

	var vr ValidationRequestResult
	decodeResult(t, rpcCall(t, env.url, "star_requestValidation", AddressParam{Address: env.addr}), &vr)
	env.clock.Advance(301 * time.Second)

	s := star.Star{RA: "1", Dec: "2", Story: "late"}
	resp := rpcCall(t, env.url, "star_submit", SubmitStarParam{
		Address:   env.addr,
		Message:   vr.Message,
		Signature: env.key.SignMessage(vr.Message),
		Star:      &s,
	})
	wantErrorCode(t, resp, CodeTimeout)
	if h := env.chain.Height(); h != 0 {
		t.Errorf("height after timeout = %d, want 0", h)
	}
}

func TestRPC_StarSubmit_Rejections(t *testing.T) {
	env := setupTestEnv(t)
	other, _ := crypto.GenerateKey()
	message := env.chain.RequestOwnershipMessage(env.addr)
	good := star.Star{RA: "1", Dec: "2", Story: "x"}
	empty := star.Star{}

	tests := []struct {
		name   string
		params interface{}
		code   int
	}{
		{
			name: "wrong signer",
			params: SubmitStarParam{Address: env.addr, Message: message,
				Signature: other.SignMessage(message), Star: &good},
			code: CodeInvalidSignature,
		},
		{
			name: "garbage signature",
			params: SubmitStarParam{Address: env.addr, Message: message,
				Signature: "AAAA", Star: &good},
			code: CodeInvalidSignature,
		},
		{
			name: "malformed message",
			params: SubmitStarParam{Address: env.addr, Message: "hello",
				Signature: env.key.SignMessage("hello"), Star: &good},
			code: CodeInvalidMessage,
		},
		{
			name: "empty star",
			params: SubmitStarParam{Address: env.addr, Message: message,
				Signature: env.key.SignMessage(message), Star: &empty},
			code: CodeInvalidParams,
		},
		{
			name:   "missing star",
			params: SubmitStarParam{Address: env.addr, Message: message, Signature: "sig"},
			code:   CodeInvalidParams,
		},
		{
			name:   "missing fields",
			params: SubmitStarParam{Star: &good},
			code:   CodeInvalidParams,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantErrorCode(t, rpcCall(t, env.url, "star_submit", tt.params), tt.code)
		})
	}

	if h := env.chain.Height(); h != 0 {
		t.Errorf("height after rejections = %d, want 0", h)
	}
}

func TestRPC_StarGetByWallet(t *testing.T) {
	env := setupTestEnv(t)
	first := star.Star{RA: "1", Dec: "1", Story: "first"}
	second := star.Star{RA: "2", Dec: "2", Story: "second"}
	for _, s := range []star.Star{first, second} {
		if resp := env.submitStar(t, s); resp.Error != nil {
			t.Fatalf("star_submit: %s", resp.Error.Message)
		}
	}

	var res StarsResult
	decodeResult(t, rpcCall(t, env.url, "star_getByWallet", AddressParam{Address: env.addr}), &res)
	if len(res.Stars) != 2 || res.Stars[0] != first || res.Stars[1] != second {
		t.Errorf("stars = %+v, want [%+v %+v]", res.Stars, first, second)
	}

	// The hex form names the same owner.
	decodeResult(t, rpcCall(t, env.url, "star_getByWallet", AddressParam{Address: env.key.Address().Hex()}), &res)
	if len(res.Stars) != 2 {
		t.Errorf("hex address lookup returned %d stars, want 2", len(res.Stars))
	}
}

func TestRPC_StarGetByWallet_NotFound(t *testing.T) {
	env := setupTestEnv(t)
	other, _ := crypto.GenerateKey()

	wantErrorCode(t, rpcCall(t, env.url, "star_getByWallet", AddressParam{Address: other.Address().String()}), CodeAddressNotFound)
	wantErrorCode(t, rpcCall(t, env.url, "star_getByWallet", AddressParam{Address: "bogus"}), CodeInvalidParams)
}

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)
	wantErrorCode(t, rpcCall(t, env.url, "nonexistent_method", nil), CodeMethodNotFound)
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantErrorCode(t, rpcResp, CodeParseError)
}

func TestRPC_WrongVersion(t *testing.T) {
	env := setupTestEnv(t)

	body := []byte(`{"jsonrpc":"1.0","method":"chain_getInfo","id":7}`)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantErrorCode(t, rpcResp, CodeInvalidRequest)
}

func TestRPC_BodyTooLarge(t *testing.T) {
	env := setupTestEnv(t)

	body := bytes.Repeat([]byte(" "), maxBodySize+10)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantErrorCode(t, rpcResp, CodeInvalidRequest)
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantErrorCode(t, rpcResp, CodeInvalidRequest)
}

// --- IP Filtering ---

func TestRPC_IPFilter_Allowed(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"127.0.0.1"},
	})

	resp := rpcCall(t, env.url, "chain_getInfo", nil)
	if resp.Error != nil {
		t.Errorf("expected success for 127.0.0.1, got error: %s", resp.Error.Message)
	}
}

func TestRPC_IPFilter_Blocked(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"10.0.0.0/8"}, // Only allow 10.x.x.x.
		Metrics:    true,
	})

	// Request comes from 127.0.0.1 → should be blocked.
	req := Request{JSONRPC: "2.0", Method: "chain_getInfo", ID: 1}
	body, _ := json.Marshal(req)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}

	mresp, err := http.Get(env.url + "metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer mresp.Body.Close()
	if mresp.StatusCode != http.StatusForbidden {
		t.Errorf("metrics: expected 403, got %d", mresp.StatusCode)
	}
}

func TestRPC_IPFilter_Empty_AllowsAll(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: nil, // Empty = allow all.
	})

	resp := rpcCall(t, env.url, "chain_getInfo", nil)
	if resp.Error != nil {
		t.Errorf("empty AllowedIPs should allow all: %s", resp.Error.Message)
	}
}

// --- CORS ---

func TestRPC_CORS_WildcardOrigin(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"*"},
	})

	req := Request{JSONRPC: "2.0", Method: "chain_getInfo", ID: 1}
	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	origin := resp.Header.Get("Access-Control-Allow-Origin")
	if origin != "*" {
		t.Errorf("CORS origin = %q, want %q", origin, "*")
	}
}

func TestRPC_CORS_SpecificOrigin(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"http://myapp.com"},
	})

	tests := []struct {
		origin string
		want   string
	}{
		{"http://myapp.com", "http://myapp.com"},
		{"http://evil.com", ""},
	}
	for _, tt := range tests {
		req := Request{JSONRPC: "2.0", Method: "chain_getInfo", ID: 1}
		body, _ := json.Marshal(req)
		httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Origin", tt.origin)

		resp, err := http.DefaultClient.Do(httpReq)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()

		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: CORS header = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestRPC_CORS_Preflight(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"*"},
	})

	httpReq, _ := http.NewRequest("OPTIONS", env.url, nil)
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight should have Allow-Methods header")
	}
}

// --- Rate limiting ---

func TestRPC_RateLimit(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		RateLimit: 0.001,
		RateBurst: 2,
		Metrics:   true,
	})

	for i := 0; i < 2; i++ {
		if resp := rpcCall(t, env.url, "chain_getHeight", nil); resp.Error != nil {
			t.Fatalf("request %d: %s", i, resp.Error.Message)
		}
	}

	req := Request{JSONRPC: "2.0", Method: "chain_getHeight", ID: 1}
	body, _ := json.Marshal(req)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("429 should carry Retry-After")
	}
	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantErrorCode(t, rpcResp, CodeRateLimited)
}

// --- Metrics ---

func TestRPC_Metrics(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{Metrics: true})

	if resp := env.submitStar(t, star.Star{RA: "1", Dec: "2", Story: "m"}); resp.Error != nil {
		t.Fatalf("star_submit: %s", resp.Error.Message)
	}

	resp, err := http.Get(env.url + "metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	text := string(data)

	for _, want := range []string{
		"starnotary_chain_height 1",
		`starnotary_star_submissions_total{outcome="accepted"} 1`,
		`starnotary_rpc_requests_total{code="0",method="star_submit"} 1`,
		"starnotary_rpc_request_duration_seconds",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRPC_Metrics_Disabled(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url + "metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	// Falls through to the JSON-RPC handler, which only accepts POST.
	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	wantErrorCode(t, rpcResp, CodeInvalidRequest)
}

// --- Multiple servers ---

func TestRPC_TwoServersWithMetrics(t *testing.T) {
	a := setupTestEnvWithConfig(t, config.RPCConfig{Metrics: true})
	b := setupTestEnvWithConfig(t, config.RPCConfig{Metrics: true})
	if a.url == b.url {
		t.Fatal("servers should bind distinct ports")
	}
}
