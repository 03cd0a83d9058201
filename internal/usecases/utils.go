package usecases

import (
	"fmt"
	"math/big"
	"strconv"
)

// isPositiveDecimal reports whether s parses as a finite decimal greater
// than zero.
func isPositiveDecimal(s string) bool {
	f, ok := new(big.Float).SetString(s)
	return ok && !f.IsInf() && f.Sign() > 0
}

// amountToWei converts a decimal token amount into the chain's smallest
// unit.
func amountToWei(amount string, decimals int) (*big.Int, error) {
	f, ok := new(big.Float).SetString(amount)
	if !ok || f.IsInf() || f.Sign() <= 0 {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	wei, _ := new(big.Float).Mul(f, scale).Int(nil)
	return wei, nil
}

// humanizeSeconds renders a duration estimate the way the UI shows it.
func humanizeSeconds(seconds int) string {
	switch {
	case seconds <= 0:
		return "unknown"
	case seconds < 60:
		return fmt.Sprintf("~%d seconds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("~%d minutes", (seconds+59)/60)
	default:
		return fmt.Sprintf("~%.1f hours", float64(seconds)/3600)
	}
}

// confidenceLabel buckets a route confidence score for API consumers.
func confidenceLabel(confidence float64) string {
	switch {
	case confidence >= 80:
		return "high"
	case confidence >= 50:
		return "medium"
	default:
		return "low"
	}
}

// addUSD sums decimal USD figures, skipping unparseable ones, formatted to
// cents.
func addUSD(values ...string) string {
	total := 0.0
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		total += f
	}
	return strconv.FormatFloat(total, 'f', 2, 64)
}
