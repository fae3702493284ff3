// Package token lists the fungible token balances of a wallet.
package token

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Record is one row of the token list.
type Record struct {
	Mint     string
	Amount   string
	Selected bool

	Raw      uint64
	Decimals uint8
	Account  string
}

// List holds the rows shown to the user. It is replaced wholesale on refresh.
type List struct {
	Records []Record
}

// Replace swaps in a fresh set of rows.
func (l *List) Replace(records []Record) {
	l.Records = records
}

// Clear drops every row.
func (l *List) Clear() {
	l.Records = nil
}

// Toggle flips the selection of row i. Out of range indexes are ignored.
func (l *List) Toggle(i int) {
	if i < 0 || i >= len(l.Records) {
		return
	}
	l.Records[i].Selected = !l.Records[i].Selected
}

// Selected returns the indexes of selected rows.
func (l *List) Selected() []int {
	var idx []int
	for i, r := range l.Records {
		if r.Selected {
			idx = append(idx, i)
		}
	}
	return idx
}

func (l *List) Len() int {
	return len(l.Records)
}

// FormatAmount renders a base unit amount with the mint's decimals.
func FormatAmount(raw uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals)).String()
}
