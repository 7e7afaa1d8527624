package models

import "github.com/shopspring/decimal"

const etherDecimals = 18

// FormatEther renders a wei amount with precision that depends on its magnitude.
func FormatEther(wei decimal.Decimal) string {
	if wei.IsZero() {
		return "0.00"
	}
	eth := wei.Shift(-etherDecimals)
	switch {
	case eth.LessThan(decimal.New(1, -2)):
		return eth.StringFixed(6)
	case eth.LessThan(decimal.NewFromInt(1)):
		return eth.StringFixed(4)
	}
	return eth.StringFixed(2)
}
