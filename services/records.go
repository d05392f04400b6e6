package services

import (
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// getDecimal reads a number field as a decimal. Values are stored as float64;
// NewFromFloat keeps the shortest representation, so amounts written with
// setDecimal read back unchanged.
func getDecimal(r *core.Record, field string) decimal.Decimal {
	return decimal.NewFromFloat(r.GetFloat(field))
}

func setDecimal(r *core.Record, field string, d decimal.Decimal) {
	r.Set(field, d.InexactFloat64())
}

func getBreakdown(r *core.Record) CostBreakdown {
	return CostBreakdown{
		Equipment: getDecimal(r, "cost_equipment"),
		Materials: getDecimal(r, "cost_materials"),
		Labor:     getDecimal(r, "cost_labor"),
		Total:     getDecimal(r, "total"),
	}
}

func setBreakdown(r *core.Record, b CostBreakdown) {
	setDecimal(r, "cost_equipment", b.Equipment)
	setDecimal(r, "cost_materials", b.Materials)
	setDecimal(r, "cost_labor", b.Labor)
	setDecimal(r, "total", b.Total)
}
