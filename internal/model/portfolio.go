package model

// Portfolio represents a portfolio from the database
type Portfolio struct {
	ID                  string `json:"id"`
	UserID              string `json:"userId"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	IsArchived          bool   `json:"isArchived"`
	ExcludeFromOverview bool   `json:"exclude_from_overview"`
}

// PortfolioFilter for querying portfolios
type PortfolioFilter struct {
	IncludeArchived bool
	IncludeExcluded bool
}
