package model

import "time"

// Source indicates how a record entered the system.
type Source string

const (
	// SourceManual indicates the record was typed or added by the user.
	SourceManual Source = "manual"
	// SourceImport indicates the record came from a bulk statement import.
	SourceImport Source = "import"
	// SourceSeed indicates the record ships with the application.
	SourceSeed Source = "seed"
	// SourceSweep indicates the record was created by a reclassification sweep.
	SourceSweep Source = "sweep"
)

// SynonymKind selects which registry an alias belongs to.
type SynonymKind string

const (
	// SynonymCity maps an alias to a canonical city name.
	SynonymCity SynonymKind = "city"
	// SynonymKeyword maps an alias to a canonical category keyword.
	SynonymKeyword SynonymKind = "keyword"
)

// Synonym is a persisted user alias for a canonical entity.
type Synonym struct {
	CreatedAt   time.Time
	UserID      string
	Kind        SynonymKind
	Alias       string
	CanonicalID string
	Source      Source
	ID          int64
}

// IsValid reports whether the kind is one of the known registries.
func (k SynonymKind) IsValid() bool {
	return k == SynonymCity || k == SynonymKeyword
}
