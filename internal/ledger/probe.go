package ledger

const (
	opPush1  = 0x60
	opPush4  = 0x63
	opPush32 = 0x7f
)

// pushedSelectors collects the operands of PUSH1 through PUSH4, right-aligned
// into four bytes. The optimizer drops leading zero bytes of a selector and
// pushes it with a shorter PUSH. Immediate data of wider pushes is skipped.
func pushedSelectors(code []byte) map[[4]byte]struct{} {
	pushed := make(map[[4]byte]struct{})
	for i := 0; i < len(code); i++ {
		op := code[i]
		if op < opPush1 || op > opPush32 {
			continue
		}
		n := int(op-opPush1) + 1
		if op <= opPush4 && i+n < len(code) {
			var sel [4]byte
			copy(sel[4-n:], code[i+1:i+1+n])
			pushed[sel] = struct{}{}
		}
		i += n
	}
	return pushed
}

// ProbeBytecode returns the candidate signatures whose selectors are pushed
// as constants in deployed bytecode. Solidity dispatchers compare the call
// selector against such constants, so a hit means the function exists.
func ProbeBytecode(code []byte) map[string]struct{} {
	pushed := pushedSelectors(code)

	found := make(map[string]struct{})
	for _, list := range [][]Signature{RegistrationCandidates, VerificationCandidates} {
		for _, s := range list {
			if _, ok := pushed[s.Selector()]; ok {
				found[s.String()] = struct{}{}
			}
		}
	}
	return found
}
