package pricing

import (
	"fmt"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/pkg/money"
)

const (
	MinPayers = 2
	MaxPayers = 10
)

func checkPayers(payers int) error {
	if payers < MinPayers || payers > MaxPayers {
		return domain.ErrInvalidSplit
	}
	return nil
}

// SplitEqual divides total into payers shares. Leftover minor units go one
// each to the first payers, so shares always sum to total.
func SplitEqual(total int64, payers int) ([]int64, error) {
	if err := checkPayers(payers); err != nil {
		return nil, err
	}
	base, rem := total/int64(payers), total%int64(payers)
	shares := make([]int64, payers)
	for i := range shares {
		shares[i] = base
		if int64(i) < rem {
			shares[i]++
		}
	}
	return shares, nil
}

// SplitByAssignment charges each payer the net plus tax of the lines assigned
// to them, keyed by item id. The order discount is spread across payers in
// proportion to their share so the result still sums to the order total.
func SplitByAssignment(lines []domain.Line, d *domain.OrderDiscount, assignments map[string]int, payers int) ([]int64, error) {
	if err := checkPayers(payers); err != nil {
		return nil, err
	}

	shares := make([]int64, payers)
	for i := range lines {
		p, ok := assignments[lines[i].ItemID]
		if !ok {
			return nil, domain.Errorf(domain.ErrUnassignedLines, fmt.Sprintf("line %s is not assigned", lines[i].ItemID))
		}
		if p < 0 || p >= payers {
			return nil, domain.Errorf(domain.ErrInvalidSplit, fmt.Sprintf("payer %d out of range", p))
		}
		shares[p] += lines[i].Net() + LineTax(&lines[i])
	}

	totals := ComputeTotals(lines, d)
	var gross int64
	for _, s := range shares {
		gross += s
	}
	if gross == 0 || totals.Discount == 0 {
		return shares, nil
	}

	// The largest share absorbs the rounding remainder so no share can go
	// negative.
	largest := 0
	for i, s := range shares {
		if s > shares[largest] {
			largest = i
		}
	}
	var allocated int64
	for i, s := range shares {
		cut := money.MulDiv(totals.Discount, s, gross)
		shares[i] -= cut
		allocated += cut
	}
	shares[largest] -= totals.Discount - allocated
	return shares, nil
}
