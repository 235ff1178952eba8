package rpc

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/starnotary/internal/chain"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

// ── Chain endpoints ─────────────────────────────────────────────────────

func (s *Server) handleChainGetInfo(_ *Request) (interface{}, *Error) {
	st := s.chain.State()
	gen := s.chain.Genesis()
	return &ChainInfoResult{
		ChainID:     gen.ChainID,
		ChainName:   gen.ChainName,
		Height:      st.Height,
		TipHash:     st.TipHash.String(),
		GenesisHash: st.GenesisHash.String(),
		AddressHRP:  gen.AddressHRP,
		Window:      int64(s.chain.Window().Seconds()),
	}, nil
}

func (s *Server) handleChainGetHeight(_ *Request) (interface{}, *Error) {
	return &HeightResult{Height: s.chain.Height()}, nil
}

func (s *Server) handleChainGetBlockByHash(req *Request) (interface{}, *Error) {
	var params HashParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Hash == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "hash is required"}
	}

	hash, err := types.HexToHash(params.Hash)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid hash: must be 32-byte hex"}
	}

	blk, ok := s.chain.GetBlockByHash(hash)
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("block not found: %s", params.Hash)}
	}
	return blk, nil
}

func (s *Server) handleChainGetBlockByHeight(req *Request) (interface{}, *Error) {
	var params HeightParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Height == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "height is required"}
	}

	blk, ok := s.chain.GetBlockByHeight(*params.Height)
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("block not found at height %d", *params.Height)}
	}
	return blk, nil
}

func (s *Server) handleChainValidate(_ *Request) (interface{}, *Error) {
	findings := s.chain.ValidateChain()
	res := &ValidateResult{
		Valid:       len(findings) == 0,
		Errors:      make([]string, 0, len(findings)),
		Tampered:    []uint64{},
		BrokenLinks: []uint64{},
	}
	for _, f := range findings {
		res.Errors = append(res.Errors, f.Error())

		var tampered *chain.TamperedBlockError
		var broken *chain.BrokenLinkError
		switch {
		case errors.As(f, &tampered):
			res.Tampered = append(res.Tampered, tampered.Height)
		case errors.As(f, &broken):
			res.BrokenLinks = append(res.BrokenLinks, broken.Height)
		}
	}
	return res, nil
}

// ── Star registry endpoints ─────────────────────────────────────────────

func (s *Server) handleStarRequestValidation(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if _, rpcErr := decodeAddress(params.Address); rpcErr != nil {
		return nil, rpcErr
	}

	return &ValidationRequestResult{
		Address: params.Address,
		Message: s.chain.RequestOwnershipMessage(params.Address),
		Window:  int64(s.chain.Window().Seconds()),
	}, nil
}

func (s *Server) handleStarSubmit(req *Request) (interface{}, *Error) {
	var params SubmitStarParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" || params.Message == "" || params.Signature == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address, message and signature are required"}
	}
	if params.Star == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "star is required"}
	}

	blk, err := s.chain.SubmitStar(params.Address, params.Message, params.Signature, *params.Star)
	if err != nil {
		return nil, chainError(err)
	}
	return blk, nil
}

func (s *Server) handleStarGetByWallet(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if _, rpcErr := decodeAddress(params.Address); rpcErr != nil {
		return nil, rpcErr
	}

	stars, err := s.chain.GetStarsByWalletAddress(params.Address)
	if err != nil {
		return nil, chainError(err)
	}
	return &StarsResult{Address: params.Address, Stars: stars}, nil
}

// ── Helpers ─────────────────────────────────────────────────────────────

// chainError maps a ledger error to its JSON-RPC error code.
func chainError(err error) *Error {
	code := CodeInternalError
	switch {
	case errors.Is(err, chain.ErrTimeout):
		code = CodeTimeout
	case errors.Is(err, chain.ErrInvalidSignature):
		code = CodeInvalidSignature
	case errors.Is(err, chain.ErrInvalidMessage):
		code = CodeInvalidMessage
	case errors.Is(err, chain.ErrInvalidPayload):
		code = CodeInvalidParams
	case errors.Is(err, chain.ErrAddressNotFound):
		code = CodeAddressNotFound
	case errors.Is(err, chain.ErrInvalidBlock):
		code = CodeInvalidBlock
	}
	return &Error{Code: code, Message: err.Error()}
}

func decodeAddress(s string) (types.Address, *Error) {
	if s == "" {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	addr, err := types.ParseNetworkAddress(s)
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid address: %v", err)}
	}
	return addr, nil
}
