// Package types defines the core domain model shared by the branch-inventory packages.
package types

// Field widths of a branch transaction record. Longer input is truncated, never rejected.
const (
	OperationIDWidth   = 5
	TimestampWidth     = 19
	UserIDWidth        = 5
	OperationTypeWidth = 7
	StatusWidth        = 11
)

// FieldCount is the number of delimited fields in a source line.
const FieldCount = 8

// Record is one parsed transaction line of a branch file.
type Record struct {
	OperationID   string  `yaml:"id_op"`     // idOp
	StartedAt     string  `yaml:"fecha_ini"` // fechaIni
	EndedAt       string  `yaml:"fecha_fin"` // fechaFin
	UserID        string  `yaml:"id_usu"`    // idUsu
	OperationType string  `yaml:"tipo_ope"`  // tipoOpe
	OperationCode int     `yaml:"num_op"`    // numOp
	Amount        float64 `yaml:"importe"`   // importe
	Status        string  `yaml:"estado"`    // estado
}

// FileState is the lifecycle state of one source file during a run.
type FileState string

const (
	StateQueued        FileState = "queued"         // listed at scan time, not yet claimed
	StateClaimed       FileState = "claimed"        // taken off the work queue by a worker
	StateAdmitted      FileState = "admitted"       // holds a file gate permit
	StateOpened        FileState = "opened"         // open for reading, lines being processed
	StateClosed        FileState = "closed"         // every line consumed, input closed
	StateArchived      FileState = "archived"       // moved into the processed directory
	StateArchiveFailed FileState = "archive_failed" // consumed but left in place
	StateOpenFailed    FileState = "open_failed"    // could not be opened, skipped
)

// Terminal reports whether no further transition is allowed from s.
func (s FileState) Terminal() bool {
	switch s {
	case StateArchived, StateArchiveFailed, StateOpenFailed:
		return true
	default:
		return false
	}
}

// RunStats summarizes one ingestion run.
type RunStats struct {
	Files         int `yaml:"files"`
	Capacity      int `yaml:"capacity"`
	Records       int `yaml:"records"`
	Archived      int `yaml:"archived"`
	ArchiveFailed int `yaml:"archive_failed"`
	OpenFailed    int `yaml:"open_failed"`
	ShortLines    int `yaml:"short_lines"`

	Amount float64 `yaml:"amount"` // sum of importe over every stored record
}
