package rules

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Digest returns a content hash of the rule set.
// Same rules in the same order always produce the same digest, so recorded
// runs can be grouped by the configuration they were checked against.
func (rs *RuleSet) Digest() string {
	h := sha256.New()
	for _, r := range rs.Rules() {
		h.Write([]byte(r.TypeNamespace))
		h.Write([]byte{0})
		h.Write([]byte(r.MethodName))
		h.Write([]byte{0})
		h.Write([]byte(r.Reason))
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(r.ExcludedCallers(), "\x1f")))
		h.Write([]byte{0x1e})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
