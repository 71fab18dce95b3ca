package connection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"sol-terminal/src/logger"
	"sol-terminal/src/network"
)

// -----------------------------------------------------------------------------
// SolanaRPCClient fetches account state over JSON-RPC HTTP. Used once at
// startup to seed the engine before the stream delivers its first
// notification, and by operators poking at pools manually.
// -----------------------------------------------------------------------------

type SolanaRPCClient struct {
	Network    *network.AsyncNetworkManager
	Logger     *logger.Logger
	commitment string
	nextID     atomic.Uint64
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type accountInfoResponse struct {
	Result *struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *struct {
			Data     []string `json:"data"`
			Lamports uint64   `json:"lamports"`
		} `json:"value"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// -----------------------------------------------------------------------------

func NewSolanaRPCClient(nm *network.AsyncNetworkManager, commitment string, log *logger.Logger) *SolanaRPCClient {
	if commitment == "" {
		commitment = "confirmed"
	}
	return &SolanaRPCClient{
		Network:    nm,
		Logger:     log,
		commitment: commitment,
	}
}

// -----------------------------------------------------------------------------

// GetAccountInfo returns the raw account data and the slot it was observed at.
func (c *SolanaRPCClient) GetAccountInfo(ctx context.Context, pubkey string) ([]byte, uint64, error) {
	req := rpcRequest{
		Jsonrpc: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "getAccountInfo",
		Params: []interface{}{
			pubkey,
			map[string]string{"encoding": "base64", "commitment": c.commitment},
		},
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, err
	}

	body, err := c.Network.PostJSON(ctx, payload)
	if err != nil {
		return nil, 0, err
	}

	var resp accountInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("malformed getAccountInfo response: %w", err)
	}
	if resp.Error != nil {
		return nil, 0, fmt.Errorf("getAccountInfo rejected (code %d): %s", resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil || resp.Result.Value == nil {
		return nil, 0, fmt.Errorf("account %s not found", pubkey)
	}
	if len(resp.Result.Value.Data) == 0 {
		return nil, 0, fmt.Errorf("account %s carries no data", pubkey)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Result.Value.Data[0])
	if err != nil {
		return nil, 0, fmt.Errorf("account data is not valid base64: %w", err)
	}

	return data, resp.Result.Context.Slot, nil
}
