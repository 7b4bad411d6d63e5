package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"

	"github.com/aesirxio/concordium-dapp-libraries/internal/nodeapi"
	"github.com/aesirxio/concordium-dapp-libraries/schemarpc"
	"google.golang.org/grpc/status"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

type rpcRequest struct {
	Version string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id,omitempty"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type moduleSourceParams struct {
	ModuleReference string `json:"moduleReference"`
	BlockHash       string `json:"blockHash,omitempty"`
}

// jsonRpcHandler serves getModuleSource over JSON-RPC 2.0. The result is the
// base64 framed module source.
type jsonRpcHandler struct {
	store nodeapi.ModuleSourceServer
}

func newJsonRpcHandler(store nodeapi.ModuleSourceServer) *jsonRpcHandler {
	return &jsonRpcHandler{store: store}
}

func (h *jsonRpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, rpcResponse{Error: &rpcError{Code: codeParseError, Message: err.Error()}})
		return
	}
	resp := rpcResponse{ID: req.ID}
	result, rerr := h.call(r, req)
	if rerr != nil {
		resp.Error = rerr
	} else {
		resp.Result = result
	}
	writeResponse(w, resp)
}

func (h *jsonRpcHandler) call(r *http.Request, req rpcRequest) (any, *rpcError) {
	if req.Version != "2.0" {
		return nil, &rpcError{Code: codeInvalidRequest, Message: "jsonrpc must be \"2.0\""}
	}
	if req.Method != "getModuleSource" {
		return nil, &rpcError{Code: codeMethodNotFound, Message: "the method " + req.Method + " does not exist/is not available"}
	}
	if len(req.Params) != 1 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "expected one params object"}
	}
	var params moduleSourceParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	ref, err := hex.DecodeString(params.ModuleReference)
	if err != nil || len(ref) != schemarpc.ModuleReferenceSize {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid module reference"}
	}
	block := nodeapi.Block{Kind: nodeapi.LastFinal}
	if params.BlockHash != "" {
		hash, err := hex.DecodeString(params.BlockHash)
		if err != nil || len(hash) != 32 {
			return nil, &rpcError{Code: codeInvalidParams, Message: "invalid block hash"}
		}
		block = nodeapi.Block{Kind: nodeapi.Given, Hash: hash}
	}

	version, wasm, err := h.store.GetModuleSource(r.Context(), ref, block)
	if err != nil {
		msg := err.Error()
		if st, ok := status.FromError(err); ok {
			msg = st.Message()
		}
		return nil, &rpcError{Code: codeServerError, Message: msg}
	}
	return base64.StdEncoding.EncodeToString(schemarpc.FrameModuleSource(version, wasm)), nil
}

func writeResponse(w http.ResponseWriter, resp rpcResponse) {
	resp.Version = "2.0"
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("json-rpc write error: %v", err)
	}
}
