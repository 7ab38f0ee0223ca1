package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
	Count  int
}

// Overview is a compact summary of a set of transactions.
type Overview struct {
	Income     Money
	Expense    Money
	Balance    Money // signed: income minus expense
	Count      int
	ByCategory []CategoryAmount // expenses only
}
