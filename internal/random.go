package internal

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	loginCodeMin = 10000
	loginCodeMax = 99999
)

// NewLoginCode draws a login code uniformly from [10000, 99999].
// The leading digit is never zero, so the decimal rendering is always
// exactly five characters.
func NewLoginCode() (int, error) {
	span := big.NewInt(loginCodeMax - loginCodeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, err
	}
	return loginCodeMin + int(n.Int64()), nil
}

// FormatLoginCode renders a login code the way it is stored and emailed.
func FormatLoginCode(code int) string {
	return strconv.Itoa(code)
}
