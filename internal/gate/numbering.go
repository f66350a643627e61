package gate

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
)

// Alphabet without I and O to keep printed numbers unambiguous.
const ticketLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"

type numberer struct {
	counter int64
}

// next produces queue numbers like "ABC2-047": a three-letter prefix cycling
// through the alphabet plus a running sequence.
func (n *numberer) next() string {
	num := atomic.AddInt64(&n.counter, 1)
	base := int64(len(ticketLetters))
	prefix := string(ticketLetters[num%base]) +
		string(ticketLetters[(num/base)%base]) +
		string(ticketLetters[(num/(base*base))%base])
	return fmt.Sprintf("%s%d-%03d", prefix, (num/1000)%10, num%1000)
}

// pickupCode returns a short upper-hex code printed on the ticket.
func pickupCode() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "000000"
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
