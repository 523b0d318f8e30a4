package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxReader fetches transactions and receipts; *ethclient.Client satisfies it.
type TxReader interface {
	TransactionByHash(ctx context.Context, hash ethcommon.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash ethcommon.Hash) (*types.Receipt, error)
}

// DecodedRegistration is a registration transaction as shown to users.
// Function is empty when the input is not a known registration call.
type DecodedRegistration struct {
	TxHash      string `json:"tx_hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Function    string `json:"function,omitempty"`
	Digest      string `json:"digest,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Pending     bool   `json:"pending"`
	Succeeded   bool   `json:"succeeded"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
}

var registrationBySelector = func() map[[4]byte]Signature {
	m := make(map[[4]byte]Signature, len(RegistrationCandidates))
	for _, s := range RegistrationCandidates {
		m[s.Selector()] = s
	}
	return m
}()

// DecodeRegistrationTx loads a transaction with its receipt and decodes the
// registration arguments from its input.
func DecodeRegistrationTx(ctx context.Context, r TxReader, hash string) (*DecodedRegistration, error) {
	h, ok := common.NormalizeHex(hash)
	if !ok || len(h) != 64 {
		return nil, fmt.Errorf("invalid transaction hash %q: %w", hash, common.ErrInput)
	}
	txHash := ethcommon.HexToHash(h)

	tx, pending, err := r.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction %s: %w", txHash.Hex(), common.ErrorNotFound)
		}
		return nil, &LedgerCallError{Method: "eth_getTransactionByHash", Err: err}
	}

	out := &DecodedRegistration{TxHash: txHash.Hex(), Pending: pending}
	if to := tx.To(); to != nil {
		out.To = to.Hex()
	}
	if from, err := types.Sender(senderSigner(tx), tx); err == nil {
		out.From = from.Hex()
	}

	decodeInput(tx.Data(), out)

	if pending {
		return out, nil
	}

	receipt, err := r.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			out.Pending = true
			return out, nil
		}
		return nil, &LedgerCallError{Method: "eth_getTransactionReceipt", Err: err}
	}
	out.Succeeded = receipt.Status == types.ReceiptStatusSuccessful
	out.GasUsed = receipt.GasUsed
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}

	return out, nil
}

func senderSigner(tx *types.Transaction) types.Signer {
	id := tx.ChainId()
	if id == nil || id.Sign() == 0 {
		return types.HomesteadSigner{}
	}
	return types.LatestSignerForChainID(new(big.Int).Set(id))
}

func decodeInput(data []byte, out *DecodedRegistration) {
	if len(data) < 4 {
		return
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	sig, ok := registrationBySelector[sel]
	if !ok {
		return
	}
	args, err := unpackStrings(sig.Arity, data[4:])
	if err != nil {
		return
	}
	out.Function = sig.String()
	out.Digest = args[0]
	if sig.Arity >= 2 {
		out.FileName = args[1]
	}
	if sig.Arity == 3 {
		out.Tag = args[2]
	}
}
