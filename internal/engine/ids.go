package engine

import (
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// IDGenerator produces transaction identifiers.
type IDGenerator func() string

const (
	idAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idRandomChars = 6
	// idByteLimit is the largest multiple of len(idAlphabet) a byte can hold;
	// bytes at or above it are redrawn so every symbol is equally likely.
	idByteLimit = 256 - 256%len(idAlphabet)
)

// NewTransactionID returns "QP", the base-36 Unix millisecond timestamp and
// six random base-36 characters, upper-cased. IDs sort roughly by creation
// time, which helps when reading logs.
func NewTransactionID() string {
	var b strings.Builder
	b.WriteString("QP")
	b.WriteString(strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36)))
	if err := writeRandomSymbols(&b, rand.Reader, idRandomChars); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return b.String()
}

// writeRandomSymbols appends n symbols of idAlphabet drawn uniformly from r.
func writeRandomSymbols(b *strings.Builder, r io.Reader, n int) error {
	var buf [16]byte
	for n > 0 {
		read, err := r.Read(buf[:])
		if read == 0 && err != nil {
			return err
		}
		for _, c := range buf[:read] {
			if int(c) >= idByteLimit {
				continue
			}
			b.WriteByte(idAlphabet[int(c)%len(idAlphabet)])
			if n--; n == 0 {
				break
			}
		}
	}
	return nil
}
