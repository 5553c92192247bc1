package util

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
)

const lowerAlpha = "abcdefghijklmnopqrstuvwxyz"

// RandomIPv4 returns a random dotted-quad with octets in 1..254, used for
// spoofed source addresses and synthetic client-IP headers.
func RandomIPv4() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		1+rand.IntN(254), 1+rand.IntN(254), 1+rand.IntN(254), 1+rand.IntN(254))
}

// RandomLabel returns n random lowercase letters.
func RandomLabel(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = lowerAlpha[rand.IntN(len(lowerAlpha))]
	}
	return string(b)
}

// RandomPayload returns n bytes of CSPRNG noise for flood payloads.
func RandomPayload(n int) []byte {
	b := make([]byte, n)
	_, _ = crand.Read(b)
	return b
}

// RandomPort returns an ephemeral-range source port (1024..65535).
func RandomPort() int {
	return 1024 + rand.IntN(65535-1024+1)
}

// Pick returns a random element of list, or the zero value when empty.
func Pick[T any](list []T) T {
	var zero T
	if len(list) == 0 {
		return zero
	}
	return list[rand.IntN(len(list))]
}
