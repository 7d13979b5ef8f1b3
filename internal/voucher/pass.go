package voucher

import (
	"crypto/rand"
	"math/big"
)

// PassGenerator produces the secret a buyer needs to redeem a voucher.
type PassGenerator interface {
	Generate() (string, error)
}

// PassFunc adapts a function to PassGenerator.
type PassFunc func() (string, error)

func (f PassFunc) Generate() (string, error) { return f() }

const passAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomPass draws Length characters from crypto/rand.
type RandomPass struct {
	Length int
}

// Generate implements PassGenerator.
func (g RandomPass) Generate() (string, error) {
	n := g.Length
	if n <= 0 {
		n = 12
	}
	max := big.NewInt(int64(len(passAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
