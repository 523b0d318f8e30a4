package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transactor submits signed transactions on behalf of one account.
type Transactor interface {
	From() ethcommon.Address
	// Transact signs and sends a call to `to` and returns the transaction
	// hash once the node has accepted it.
	Transact(ctx context.Context, to ethcommon.Address, data []byte) (ethcommon.Hash, error)
	WaitMined(ctx context.Context, tx ethcommon.Hash) (*types.Receipt, error)
}

// SignerProvider hands out the Transactor of the connected account.
type SignerProvider interface {
	Signer(ctx context.Context) (Transactor, error)
}

// Config locates the registry contract.
type Config struct {
	Address string
	ABI     string
	// ProbeBytecode adds functions found in the deployed bytecode to the
	// ones the ABI declares.
	ProbeBytecode bool
}

// RegistrationStatus is the outcome of CheckRegistered.
type RegistrationStatus int

const (
	StatusUnknown RegistrationStatus = iota
	StatusRegistered
	StatusNotRegistered
)

func (s RegistrationStatus) String() string {
	switch s {
	case StatusRegistered:
		return "registered"
	case StatusNotRegistered:
		return "not registered"
	default:
		return "unknown"
	}
}

// Contract is a handle on the registry. Its capability is computed once,
// when the handle is created.
type Contract struct {
	address    ethcommon.Address
	abi        abi.ABI
	caller     bind.ContractCaller
	signer     Transactor
	available  []string
	capability Capability
	logger     logging.Logger
}

var placeholderAddresses = map[string]struct{}{
	"":          {},
	"0x":        {},
	"0x...":     {},
	"undefined": {},
	"null":      {},
}

func parseAddress(raw string) (ethcommon.Address, error) {
	raw = strings.TrimSpace(raw)
	if _, ok := placeholderAddresses[strings.ToLower(raw)]; ok {
		return ethcommon.Address{}, &InvalidContractError{Reason: "contract address is missing or invalid"}
	}
	if !ethcommon.IsHexAddress(raw) {
		return ethcommon.Address{}, &InvalidContractError{Reason: "invalid contract address: " + raw}
	}
	addr := ethcommon.HexToAddress(raw)
	if addr == (ethcommon.Address{}) {
		return ethcommon.Address{}, &InvalidContractError{Reason: "contract address is the zero address"}
	}
	return addr, nil
}

// Resolve builds a writable handle for the account behind provider.
func Resolve(ctx context.Context, provider SignerProvider, caller bind.ContractCaller, cfg Config, logger logging.Logger) (*Contract, error) {
	if provider == nil {
		return nil, common.ErrNoProvider
	}

	c, err := Bind(ctx, caller, cfg, logger)
	if err != nil {
		return nil, err
	}

	signer, err := provider.Signer(ctx)
	if err != nil {
		return nil, fmt.Errorf("get signer: %w", err)
	}
	c.signer = signer

	return c, nil
}

// Bind builds a read-only handle. Register on it fails with ErrNoProvider.
func Bind(ctx context.Context, caller bind.ContractCaller, cfg Config, logger logging.Logger) (*Contract, error) {
	addr, err := parseAddress(cfg.Address)
	if err != nil {
		return nil, err
	}
	parsed, err := parseABI(cfg.ABI)
	if err != nil {
		return nil, err
	}

	c := &Contract{
		address: addr,
		abi:     parsed,
		caller:  caller,
		logger:  logger.With("module", "ledger", "contract", addr.Hex()),
	}

	available := signatures(parsed)
	if cfg.ProbeBytecode && caller != nil {
		code, err := caller.CodeAt(ctx, addr, nil)
		switch {
		case err != nil:
			c.logger.Warn(ctx, "bytecode probe failed, using ABI only", "error", err)
		case len(code) == 0:
			c.logger.Warn(ctx, "no contract code at address")
		default:
			for sig := range ProbeBytecode(code) {
				available[sig] = struct{}{}
			}
		}
	}

	c.available = sortedKeys(available)
	c.capability = DetectCapability(available)
	c.logger.Info(ctx, "contract loaded", "functions", strings.Join(c.available, ","), "capability", c.capability.String())

	return c, nil
}

func (c *Contract) Address() ethcommon.Address { return c.address }

// Available lists the function signatures the handle knows about, sorted.
func (c *Contract) Available() []string { return append([]string(nil), c.available...) }

func (c *Contract) Capability() Capability { return c.capability }

// Register submits the digest with the preferred registration function and
// returns the transaction hash without waiting for it to be mined.
func (c *Contract) Register(ctx context.Context, digest, fileName, tag string) (string, error) {
	if digest == "" {
		return "", fmt.Errorf("hash not ready: %w", common.ErrInput)
	}
	if c.signer == nil {
		return "", common.ErrNoProvider
	}

	sig, ok := c.capability.Registration()
	if !ok {
		return "", &NoCompatibleFunctionError{Available: c.Available()}
	}

	data, err := packCall(sig, registrationArgs(sig, digest, fileName, tag)...)
	if err != nil {
		return "", &LedgerCallError{Method: sig.String(), Err: err}
	}

	c.logger.Info(ctx, "submitting registration", "function", sig.String(), "digest", digest)

	hash, err := c.signer.Transact(ctx, c.address, data)
	if err != nil {
		return "", &LedgerCallError{Method: sig.String(), Err: err}
	}

	return hash.Hex(), nil
}

// WaitMined blocks until the transaction is mined. A reverted transaction
// is reported as a LedgerCallError.
func (c *Contract) WaitMined(ctx context.Context, txHash string) (*types.Receipt, error) {
	if c.signer == nil {
		return nil, common.ErrNoProvider
	}
	receipt, err := c.signer.WaitMined(ctx, ethcommon.HexToHash(txHash))
	if err != nil {
		return nil, &LedgerCallError{Method: "waitMined", Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &LedgerCallError{Method: "waitMined", Err: fmt.Errorf("transaction %s reverted", txHash)}
	}
	return receipt, nil
}

// CheckRegistered asks the contract whether digest is registered. Without a
// verification function the answer is StatusUnknown and no error.
func (c *Contract) CheckRegistered(ctx context.Context, digest string) (RegistrationStatus, error) {
	sig, ok := c.capability.Verification()
	if !ok {
		return StatusUnknown, nil
	}

	out, err := c.call(ctx, sig, digest)
	if err != nil {
		return StatusUnknown, err
	}

	var registered bool
	if sig.Name == "getFile" {
		registered, err = c.decodeGetFile(out)
	} else {
		registered, err = decodeBool(out)
	}
	if err != nil {
		return StatusUnknown, &LedgerCallError{Method: sig.String(), Err: err}
	}

	if registered {
		return StatusRegistered, nil
	}
	return StatusNotRegistered, nil
}

// FileInfo reads the ledger entry for digest. It returns nil when nothing
// was registered under the digest.
func (c *Contract) FileInfo(ctx context.Context, digest string) (*records.LedgerEntry, error) {
	const sig = "getFileInfo(string)"

	method, ok := methodBySig(c.abi, sig)
	if !ok {
		status, err := c.CheckRegistered(ctx, digest)
		if err != nil || status != StatusRegistered {
			return nil, err
		}
		return &records.LedgerEntry{Digest: digest}, nil
	}

	if c.caller == nil {
		return nil, &LedgerCallError{Method: sig, Err: errors.New("no ledger connection")}
	}
	data, err := c.abi.Pack(method.Name, digest)
	if err != nil {
		return nil, &LedgerCallError{Method: sig, Err: err}
	}
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, &LedgerCallError{Method: sig, Err: err}
	}
	vals, err := method.Outputs.Unpack(out)
	if err != nil {
		return nil, &LedgerCallError{Method: sig, Err: err}
	}

	entry, err := entryFromOutputs(vals)
	if err != nil {
		return nil, &LedgerCallError{Method: sig, Err: err}
	}
	if entry.Uploader == (ethcommon.Address{}) {
		return nil, nil
	}

	return &records.LedgerEntry{
		Uploader:  entry.Uploader.Hex(),
		Digest:    digest,
		FileName:  entry.FileName,
		Tag:       entry.Tag,
		Timestamp: time.Unix(entry.Timestamp.Int64(), 0).UTC(),
	}, nil
}

func (c *Contract) call(ctx context.Context, sig Signature, args ...string) ([]byte, error) {
	if c.caller == nil {
		return nil, &LedgerCallError{Method: sig.String(), Err: errors.New("no ledger connection")}
	}
	data, err := packCall(sig, args...)
	if err != nil {
		return nil, &LedgerCallError{Method: sig.String(), Err: err}
	}
	msg := ethereum.CallMsg{To: &c.address, Data: data}
	if c.signer != nil {
		msg.From = c.signer.From()
	}
	out, err := c.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, &LedgerCallError{Method: sig.String(), Err: err}
	}
	return out, nil
}

// decodeGetFile treats any non-zero decoded value as a registration. When
// the ABI does not describe getFile, any non-zero return data counts.
func (c *Contract) decodeGetFile(out []byte) (bool, error) {
	method, ok := methodBySig(c.abi, "getFile(string)")
	if !ok || len(method.Outputs) == 0 {
		for _, b := range out {
			if b != 0 {
				return true, nil
			}
		}
		return false, nil
	}
	vals, err := method.Outputs.Unpack(out)
	if err != nil {
		return false, err
	}
	for _, v := range vals {
		if nonZero(reflect.ValueOf(v)) {
			return true, nil
		}
	}
	return false, nil
}

func nonZero(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	if v.CanInterface() {
		if b, ok := v.Interface().(*big.Int); ok {
			return b != nil && b.Sign() != 0
		}
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return !v.IsNil() && nonZero(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if nonZero(v.Field(i)) {
				return true
			}
		}
		return false
	case reflect.Slice, reflect.String, reflect.Map:
		return v.Len() > 0
	default:
		return !v.IsZero()
	}
}

type fileEntry struct {
	Uploader  ethcommon.Address
	FileName  string
	Tag       string
	Timestamp *big.Int
}

// entryFromOutputs accepts either a single tuple output or the flattened
// (address, string, string, uint256) form.
func entryFromOutputs(vals []any) (fileEntry, error) {
	var e fileEntry
	if len(vals) == 1 {
		v := reflect.ValueOf(vals[0])
		if v.Kind() != reflect.Struct {
			return e, fmt.Errorf("unexpected getFileInfo output %T", vals[0])
		}
		vals = make([]any, 0, v.NumField())
		for _, name := range []string{"Uploader", "FileName", "Tag", "Timestamp"} {
			f := v.FieldByName(name)
			if !f.IsValid() {
				return e, fmt.Errorf("getFileInfo output lacks %s", name)
			}
			vals = append(vals, f.Interface())
		}
	}
	if len(vals) < 4 {
		return e, fmt.Errorf("getFileInfo returned %d values", len(vals))
	}

	var ok bool
	if e.Uploader, ok = vals[0].(ethcommon.Address); !ok {
		return e, fmt.Errorf("uploader has type %T", vals[0])
	}
	if e.FileName, ok = vals[1].(string); !ok {
		return e, fmt.Errorf("file name has type %T", vals[1])
	}
	if e.Tag, ok = vals[2].(string); !ok {
		return e, fmt.Errorf("tag has type %T", vals[2])
	}
	if e.Timestamp, ok = vals[3].(*big.Int); !ok || e.Timestamp == nil {
		return e, fmt.Errorf("timestamp has type %T", vals[3])
	}
	return e, nil
}
