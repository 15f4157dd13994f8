package reservations

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet leaves out 0, O, 1 and I so codes can be read back over the phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateConfirmationCode returns a random code of n symbols
func generateConfirmationCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, n)
	for i := range code {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[num.Int64()]
	}
	return string(code), nil
}
