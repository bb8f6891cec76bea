package model

// All lists every table for schema migration.
func All() []any {
	return []any{
		&Job{},
		&Contractor{},
		&ContractorTrade{},
		&ContractorZip{},
		&Quote{},
		&Match{},
		&MatchRun{},
		&Rating{},
		&CacheEntry{},
	}
}
