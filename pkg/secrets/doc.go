// Package secrets seals credentials at rest.
//
// A Sealer derives an AES-256 key from a 32-byte master key and a scope
// string with HKDF-SHA-256, then encrypts values with AES-GCM. Sealed values
// are text: a version prefix followed by base64 of nonce, ciphertext and tag,
// so they fit in any string slot (a JSON file, a Redis key).
//
//	key, _ := secrets.ParseKey(os.Getenv("NOTIFY_STORE_KEY"))
//	s, err := secrets.NewSealer(key, "notify")
//	if err != nil {
//		return err
//	}
//	sealed, _ := s.Seal(token)   // "v1:..."
//	token, _ = s.Open(sealed)
//
// The scope binds sealed values to one store: a value sealed for scope "a"
// does not open under scope "b" even with the same master key.
//
// Open reports ErrNotSealed for values without the version prefix so callers
// can accept plaintext written before sealing was enabled.
package secrets
