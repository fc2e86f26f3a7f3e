package orders

import (
	"math/rand"
	"strconv"
	"time"
)

const numberAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderNumber builds a human-legible reference like LW-1756600000000-x7k2m9qp1.
// It is advisory, shown to customers and support; the order id stays the
// primary key. The table still carries a unique constraint in case the
// timestamp+suffix ever collides.
func NewOrderNumber() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = numberAlphabet[rand.Intn(len(numberAlphabet))]
	}
	return "LW-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + string(suffix)
}
