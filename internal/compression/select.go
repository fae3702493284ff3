package compression

import (
	"errors"
	"fmt"
	"sort"
)

// MaxInputAccounts caps how many accounts one instruction may consume.
const MaxInputAccounts = 4

var ErrInsufficientBalance = errors.New("insufficient balance")

// SelectMinAccountsForTransfer picks the fewest accounts, largest first, whose
// amounts add up to target. An empty input yields an empty selection. When the
// largest MaxInputAccounts accounts fall short the selection is still returned
// together with ErrInsufficientBalance.
func SelectMinAccountsForTransfer(accounts []CompressedAccount, target uint64) ([]CompressedAccount, uint64, error) {
	sorted := make([]CompressedAccount, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Amount > 0 {
			sorted = append(sorted, acc)
		}
	}
	if len(sorted) == 0 {
		return nil, 0, nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})

	var (
		selected []CompressedAccount
		total    uint64
	)
	for _, acc := range sorted {
		if total >= target || len(selected) == MaxInputAccounts {
			break
		}
		selected = append(selected, acc)
		total += acc.Amount
	}

	if total < target {
		return selected, total, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, total, target)
	}
	return selected, total, nil
}
