package ledger

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DefaultAddress is the registry deployment the application ships with.
const DefaultAddress = "0xbb78cac13262039347B1aEe6515ccb490C5dD55E"

//go:embed registry.abi.json
var defaultABI string

// DefaultABI returns the bundled registry ABI JSON.
func DefaultABI() string { return defaultABI }

// LoadABI returns the ABI JSON at path, or the bundled one for an empty path.
func LoadABI(path string) (string, error) {
	if path == "" {
		return defaultABI, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseABI(raw string) (abi.ABI, error) {
	if strings.TrimSpace(raw) == "" {
		return abi.ABI{}, &InvalidContractError{Reason: "ABI is missing or empty"}
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return abi.ABI{}, &InvalidContractError{Reason: "invalid ABI format: " + err.Error()}
	}
	if len(parsed.Methods) == 0 {
		return abi.ABI{}, &InvalidContractError{Reason: "ABI declares no functions"}
	}
	return parsed, nil
}

// signatures returns "name(type,...)" for every function in the ABI.
func signatures(parsed abi.ABI) map[string]struct{} {
	out := make(map[string]struct{}, len(parsed.Methods))
	for _, m := range parsed.Methods {
		out[m.Sig] = struct{}{}
	}
	return out
}

func methodBySig(parsed abi.ABI, sig string) (abi.Method, bool) {
	for _, m := range parsed.Methods {
		if m.Sig == sig {
			return m, true
		}
	}
	return abi.Method{}, false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
