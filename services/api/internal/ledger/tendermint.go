package ledger

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/ed25519"
	"github.com/tendermint/tendermint/rpc/coretypes"
	"github.com/tendermint/tendermint/types"
)

// broadcaster is the subset of the tendermint RPC client the submitter uses.
type broadcaster interface {
	BroadcastTxCommit(ctx context.Context, tx types.Tx) (*coretypes.ResultBroadcastTxCommit, error)
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
}

// RevertError is returned when the chain accepted the transaction bytes but
// the contract rejected the call.
type RevertError struct {
	Stage string
	Code  uint32
	Log   string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("contract reverted at %s: code %d: %s", e.Stage, e.Code, e.Log)
}

type envelope struct {
	Contract  string     `json:"contract"`
	Op        Op         `json:"op"`
	Params    callParams `json:"params"`
	Nonce     string     `json:"nonce"`
	PubKey    []byte     `json:"pub_key"`
	Signature []byte     `json:"signature,omitempty"`
}

type callParams struct {
	OrderID      string `json:"order_id,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	Details      string `json:"details,omitempty"`
	Amount       string `json:"amount,omitempty"`
}

// TendermintSubmitter signs contract calls with the service key and commits
// them through a tendermint RPC endpoint.
type TendermintSubmitter struct {
	client   broadcaster
	contract string
	key      ed25519.PrivKey
	nonce    func() string
}

func NewTendermintSubmitter(client broadcaster, contract string, key ed25519.PrivKey) *TendermintSubmitter {
	return &TendermintSubmitter{
		client:   client,
		contract: contract,
		key:      key,
		nonce:    func() string { return uuid.NewString() },
	}
}

func (s *TendermintSubmitter) Submit(ctx context.Context, call Call) (Receipt, error) {
	tx, err := s.encode(call)
	if err != nil {
		return Receipt{}, err
	}

	res, err := s.client.BroadcastTxCommit(ctx, tx)
	if err != nil {
		return Receipt{}, fmt.Errorf("broadcast %s: %w", call.Op, err)
	}
	if res.CheckTx.Code != abci.CodeTypeOK {
		return Receipt{}, &RevertError{Stage: "check_tx", Code: res.CheckTx.Code, Log: res.CheckTx.Log}
	}
	if res.DeliverTx.Code != abci.CodeTypeOK {
		return Receipt{}, &RevertError{Stage: "deliver_tx", Code: res.DeliverTx.Code, Log: res.DeliverTx.Log}
	}

	return Receipt{
		TxRef:  res.Hash.String(),
		Height: res.Height,
		Events: convertEvents(res.DeliverTx.Events),
	}, nil
}

func (s *TendermintSubmitter) encode(call Call) (types.Tx, error) {
	env := envelope{
		Contract: s.contract,
		Op:       call.Op,
		Params: callParams{
			OrderID:      call.OrderID,
			Counterparty: call.Counterparty,
			Details:      call.Details,
		},
		Nonce:  s.nonce(),
		PubKey: s.key.PubKey().Bytes(),
	}
	if !call.Amount.IsZero() {
		env.Params.Amount = call.Amount.String()
	}

	signBytes, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", call.Op, err)
	}
	sig, err := s.key.Sign(signBytes)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", call.Op, err)
	}
	env.Signature = sig

	tx, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", call.Op, err)
	}
	return types.Tx(tx), nil
}

func convertEvents(in []abci.Event) []Event {
	out := make([]Event, 0, len(in))
	for _, ev := range in {
		attrs := make(map[string]string, len(ev.Attributes))
		for _, a := range ev.Attributes {
			attrs[a.Key] = a.Value
		}
		out = append(out, Event{Type: ev.Type, Attributes: attrs})
	}
	return out
}

// ParsePrivKey decodes a 64-byte ed25519 private key given as hex or base64.
func ParsePrivKey(s string) (ed25519.PrivKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("signer key is empty")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("signer key is neither hex nor base64")
		}
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signer key has %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}
	return ed25519.PrivKey(raw), nil
}
