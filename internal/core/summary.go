package core

// CategoryAmount is an amount aggregated per category.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Amount     Money
}

// MonthOverview is a compact expense summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
}
