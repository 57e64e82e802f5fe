package auth

import "golang.org/x/crypto/bcrypt"

// dummyPassword seeds the hash used to equalize work when a login names an
// unknown email. The value never verifies against real input because the
// verifier discards the result on that path.
const dummyPassword = "equal-cost-placeholder"

// Hasher wraps bcrypt with a configured cost factor. Hashing embeds a fresh
// random salt per call, so two hashes of the same plaintext differ while both
// verify. Verification is constant-time within bcrypt itself.
type Hasher struct {
	cost      int
	dummyHash string
}

// NewHasher builds a Hasher, clamping the cost into bcrypt's supported range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		// Only reachable if the constant exceeds bcrypt's input limit,
		// which it does not.
		panic(err)
	}
	return &Hasher{cost: cost, dummyHash: string(dummy)}
}

// Hash returns a bcrypt hash of the plaintext. Fails only when the input
// cannot be encoded by the algorithm (bcrypt caps input at 72 bytes).
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. Malformed hashes
// and mismatches both return false; no error escapes.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// DummyHash returns a precomputed hash for equal-cost verification on lookup
// misses, so a login against an unknown email burns the same bcrypt work as
// one against a real account.
func (h *Hasher) DummyHash() string {
	return h.dummyHash
}
