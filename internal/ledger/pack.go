package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	stringType, _ = abi.NewType("string", "", nil)
	boolType, _   = abi.NewType("bool", "", nil)

	boolArgs = abi.Arguments{{Type: boolType}}
)

func stringArgs(n int) abi.Arguments {
	args := make(abi.Arguments, n)
	for i := range args {
		args[i] = abi.Argument{Type: stringType}
	}
	return args
}

// packCall encodes a call to sig. Calls are encoded from the signature alone
// so functions found only by bytecode probing can still be invoked.
func packCall(sig Signature, args ...string) ([]byte, error) {
	if len(args) != sig.Arity {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", sig, sig.Arity, len(args))
	}
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a
	}
	packed, err := stringArgs(sig.Arity).Pack(values...)
	if err != nil {
		return nil, err
	}
	sel := sig.Selector()
	return append(sel[:], packed...), nil
}

// unpackStrings decodes the string arguments that follow a selector.
func unpackStrings(arity int, data []byte) ([]string, error) {
	vals, err := stringArgs(arity).Unpack(data)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("argument %d has type %T", i, v)
		}
		out[i] = s
	}
	return out, nil
}

func decodeBool(out []byte) (bool, error) {
	vals, err := boolArgs.Unpack(out)
	if err != nil {
		return false, err
	}
	b, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected return type %T", vals[0])
	}
	return b, nil
}
