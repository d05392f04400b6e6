package services

import "github.com/shopspring/decimal"

// CostBreakdown splits an amount into its equipment, materials and labor
// components. Total is always their sum.
type CostBreakdown struct {
	Equipment decimal.Decimal `json:"equipment"`
	Materials decimal.Decimal `json:"materials"`
	Labor     decimal.Decimal `json:"labor"`
	Total     decimal.Decimal `json:"total"`
}

// Add returns the component-wise sum of b and o.
func (b CostBreakdown) Add(o CostBreakdown) CostBreakdown {
	return CostBreakdown{
		Equipment: b.Equipment.Add(o.Equipment),
		Materials: b.Materials.Add(o.Materials),
		Labor:     b.Labor.Add(o.Labor),
		Total:     b.Total.Add(o.Total),
	}
}

// Equal reports whether every component of b equals o's.
func (b CostBreakdown) Equal(o CostBreakdown) bool {
	return b.Equipment.Equal(o.Equipment) &&
		b.Materials.Equal(o.Materials) &&
		b.Labor.Equal(o.Labor) &&
		b.Total.Equal(o.Total)
}

func zeroBreakdown() CostBreakdown {
	return CostBreakdown{
		Equipment: decimal.Zero,
		Materials: decimal.Zero,
		Labor:     decimal.Zero,
		Total:     decimal.Zero,
	}
}

// RecalcItem recomputes an item's extended costs from its unit costs:
// total = (equipment + materials + labor) * quantity.
func RecalcItem(it *ProjectItem) {
	it.Costs = CostBreakdown{
		Equipment: it.UnitCostEquipment.Mul(it.Quantity),
		Materials: it.UnitCostMaterials.Mul(it.Quantity),
		Labor:     it.UnitCostLabor.Mul(it.Quantity),
	}
	it.Costs.Total = it.UnitCostEquipment.
		Add(it.UnitCostMaterials).
		Add(it.UnitCostLabor).
		Mul(it.Quantity)
}

// RollupLevel recomputes every item of l, then sums them into l.Subtotals.
// Sums are rebuilt from scratch.
func RollupLevel(l *Level) {
	for i := range l.Items {
		RecalcItem(&l.Items[i])
	}
	sumLevel(l)
}

// sumLevel rebuilds l.Subtotals from item costs without recomputing items.
func sumLevel(l *Level) {
	sum := zeroBreakdown()
	for _, it := range l.Items {
		sum = sum.Add(it.Costs)
	}
	l.Subtotals = sum
}

// RollupProject sums the subtotals of every level into p.Totals. Levels must
// already be rolled up.
func RollupProject(p *Project) {
	sum := zeroBreakdown()
	for _, l := range p.Levels {
		sum = sum.Add(l.Subtotals)
	}
	p.Totals = sum
}

// Recalculate runs the full bottom-up pass: items, then levels, then the
// project.
func Recalculate(p *Project) {
	for i := range p.Levels {
		RollupLevel(&p.Levels[i])
	}
	RollupProject(p)
}
