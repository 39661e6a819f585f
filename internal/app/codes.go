package app

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// CodeGenerator produces candidate room codes. Uniqueness is enforced by the SessionRepository.
type CodeGenerator func() string

// NewCodeGenerator returns a generator of six digit room codes.
func NewCodeGenerator() CodeGenerator {
	var mu sync.Mutex
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return strconv.Itoa(100000 + rnd.Intn(900000))
	}
}
