package models

import "github.com/shopspring/decimal"

func init() {
	// amounts travel as JSON numbers, like the register UI sends them
	decimal.MarshalJSONWithoutQuotes = true
}
