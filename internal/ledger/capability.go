// Package ledger talks to the file registry contract: it works out which
// registration and verification functions a deployed contract offers,
// submits registrations, checks registration state and decodes past
// registration transactions.
package ledger

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Signature is a contract function taking Arity string arguments.
type Signature struct {
	Name  string
	Arity int
}

func (s Signature) String() string {
	return s.Name + "(" + strings.TrimSuffix(strings.Repeat("string,", s.Arity), ",") + ")"
}

// Selector is the 4-byte function selector: the first bytes of the
// Keccak-256 hash of the canonical signature.
func (s Signature) Selector() [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(s.String()))
	var sel [4]byte
	copy(sel[:], h.Sum(nil))
	return sel
}

var registrationStems = []string{"registerFile", "addFile", "storeFile", "register", "addHash", "storeHash"}

// RegistrationCandidates lists the accepted registration functions in
// preference order: every 3-ary form, then every 2-ary form, then 1-ary.
var RegistrationCandidates = func() []Signature {
	out := make([]Signature, 0, len(registrationStems)*3)
	for arity := 3; arity >= 1; arity-- {
		for _, stem := range registrationStems {
			out = append(out, Signature{Name: stem, Arity: arity})
		}
	}
	return out
}()

// VerificationCandidates lists the accepted registration checks in
// preference order. getFile returns a structure; the others a bool.
var VerificationCandidates = []Signature{
	{Name: "isRegistered", Arity: 1},
	{Name: "isFileRegistered", Arity: 1},
	{Name: "fileExists", Arity: 1},
	{Name: "getFile", Arity: 1},
}

// Capability is the subset of candidates a contract offers, in candidate
// order.
type Capability struct {
	registration []Signature
	verification []Signature
}

// DetectCapability intersects the candidate lists with the available
// signatures ("name(type,...)"). The result depends only on the input set.
func DetectCapability(available map[string]struct{}) Capability {
	var c Capability
	for _, s := range RegistrationCandidates {
		if _, ok := available[s.String()]; ok {
			c.registration = append(c.registration, s)
		}
	}
	for _, s := range VerificationCandidates {
		if _, ok := available[s.String()]; ok {
			c.verification = append(c.verification, s)
		}
	}
	return c
}

// Registration returns the preferred registration function.
func (c Capability) Registration() (Signature, bool) {
	if len(c.registration) == 0 {
		return Signature{}, false
	}
	return c.registration[0], true
}

// Verification returns the preferred verification function.
func (c Capability) Verification() (Signature, bool) {
	if len(c.verification) == 0 {
		return Signature{}, false
	}
	return c.verification[0], true
}

func (c Capability) String() string {
	reg, _ := c.Registration()
	ver, _ := c.Verification()
	return fmt.Sprintf("registration=%s verification=%s", orNone(reg), orNone(ver))
}

func orNone(s Signature) string {
	if s.Name == "" {
		return "none"
	}
	return s.String()
}

// registrationArgs truncates (digest, name, tag) to the arity of sig; the
// digest always comes first.
func registrationArgs(sig Signature, digest, name, tag string) []string {
	args := []string{digest, name, tag}
	return args[:sig.Arity]
}
