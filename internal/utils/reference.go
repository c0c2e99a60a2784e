package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateReferenceCode generates a booking reference like APT1736012345042137
func GenerateReferenceCode(prefix string) string {
	// Generate a random 6-digit number
	max := big.NewInt(999999)
	n, _ := rand.Int(rand.Reader, max)

	// Use timestamp + random for uniqueness
	return fmt.Sprintf("%s%d%06d", prefix, time.Now().Unix(), n.Int64())
}
