package careauth

import "github.com/MrEthical07/careauth/internal"

// GenerateSecureToken returns n random bytes hex-encoded. n <= 0 selects 32.
func GenerateSecureToken(n int) (string, error) {
	if n <= 0 {
		n = internal.DefaultTokenBytes
	}
	return internal.RandomHex(n)
}
