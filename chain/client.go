package chain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"github.com/hedgewtf/zodial-watcher/common/logging"
	utils "github.com/hedgewtf/zodial-watcher/utils/http"
)

// Account is one raw on-chain account payload. Data is nil when the
// account was fetched with a zero-length data slice.
type Account struct {
	Address string
	Owner   string
	Data    []byte
}

// Memcmp is a binary account filter: Bytes must match at Offset.
type Memcmp struct {
	Offset int
	Bytes  []byte
}

// AccountFetcher is the account-fetch collaborator. Implementations
// must tolerate at least 100 addresses per GetAccounts call.
type AccountFetcher interface {
	// GetAccounts returns one entry per requested address, nil where
	// the account does not exist.
	GetAccounts(addrs []string) ([]*Account, error)

	// GetProgramAccounts returns all program accounts matching every
	// filter. When withData is false only addresses are populated.
	GetProgramAccounts(programID string, filters []Memcmp, withData bool) ([]*Account, error)
}

// Client speaks Solana JSON-RPC over the shared retrying http client.
type Client struct {
	logger logging.Logger
	client *utils.Client
}

var _ AccountFetcher = (*Client)(nil)

// NewClient returns an RPC client bound to url.
func NewClient(logger logging.Logger, url string) *Client {
	logger.Info("New chain RPC client with url %s", url)
	return &Client{
		logger: logger,
		client: utils.NewHttpClient(utils.DefaultTransport, logger, url),
	}
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// accountInfo is the wire shape of one account value.
type accountInfo struct {
	Data  []string `json:"data"` // [payload, encoding]
	Owner string   `json:"owner"`
}

func (a *accountInfo) decodeData() ([]byte, error) {
	if len(a.Data) == 0 {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(a.Data[0])
}

// GetAccounts fetches raw payloads for addrs via getMultipleAccounts.
func (c *Client) GetAccounts(addrs []string) ([]*Account, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	var resp struct {
		Result struct {
			Value []*accountInfo `json:"value"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}
	params := []interface{}{
		addrs,
		map[string]interface{}{"encoding": "base64", "commitment": "confirmed"},
	}
	if err := c.call(&resp, "getMultipleAccounts", params); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getMultipleAccounts rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Result.Value) != len(addrs) {
		return nil, fmt.Errorf("getMultipleAccounts returned %d values for %d addresses",
			len(resp.Result.Value), len(addrs))
	}
	accounts := make([]*Account, len(addrs))
	for i, info := range resp.Result.Value {
		if info == nil {
			// account does not exist
			continue
		}
		data, err := info.decodeData()
		if err != nil {
			return nil, fmt.Errorf("fail to decode account data of %s %w", addrs[i], err)
		}
		accounts[i] = &Account{Address: addrs[i], Owner: info.Owner, Data: data}
	}
	return accounts, nil
}

// GetProgramAccounts scans all accounts of programID matching filters.
func (c *Client) GetProgramAccounts(programID string, filters []Memcmp, withData bool) ([]*Account, error) {
	encoded := make([]map[string]interface{}, len(filters))
	for i, f := range filters {
		encoded[i] = map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Offset,
				"bytes":  base58.Encode(f.Bytes),
			},
		}
	}
	opts := map[string]interface{}{
		"encoding":   "base64",
		"commitment": "confirmed",
		"filters":    encoded,
	}
	if !withData {
		// addresses only, don't ship account payloads over the wire
		opts["dataSlice"] = map[string]int{"offset": 0, "length": 0}
	}
	var resp struct {
		Result []struct {
			Pubkey  string       `json:"pubkey"`
			Account *accountInfo `json:"account"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}
	if err := c.call(&resp, "getProgramAccounts", []interface{}{programID, opts}); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getProgramAccounts rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	accounts := make([]*Account, 0, len(resp.Result))
	for _, entry := range resp.Result {
		acc := &Account{Address: entry.Pubkey}
		if withData && entry.Account != nil {
			data, err := entry.Account.decodeData()
			if err != nil {
				return nil, fmt.Errorf("fail to decode account data of %s %w", entry.Pubkey, err)
			}
			acc.Owner = entry.Account.Owner
			acc.Data = data
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// call returns err if failed to get a response from the RPC in three times.
func (c *Client) call(resp interface{}, method string, params []interface{}) error {
	body := rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params}
	for i := 0; i < 3; i++ {
		err, code, res := c.client.Post(nil, body, nil)
		if err != nil {
			c.logger.Error("fail to post rpc method=%s err=%s", method, err)
			continue
		} else if code/100 != 2 {
			c.logger.Error("unexpected rpc status method=%s code=%d", method, code)
			continue
		}
		err = json.Unmarshal(res, resp)
		if err != nil {
			c.logger.Error("fail to unmarshal rpc result method=%s err=%s", method, err)
			continue
		}
		// success
		return nil
	}
	return errors.New("fail to query chain RPC in three times")
}
