// ============================================================================
// Branch Inventory - Record Parser
// ============================================================================
//
// Package: internal/record
// File: parser.go
// Purpose: Split one raw branch line into a fixed-arity types.Record
//
// Line format (delimiter ';', trailing delimiter tolerated):
//   idOp;fechaIni;fechaFin;idUsu;tipoOpe;numOp;importe;estado;
//
// Field handling:
//   - Text fields are copied up to their width and truncated beyond it
//   - numOp and importe that do not parse keep their zero value
//   - A short line leaves the trailing fields at their zero value
//
// Parse never fails. ParseStrict additionally reports lines that carry
// fewer than types.FieldCount segments, for callers that want to flag them.
//
// ============================================================================

package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ChuLiYu/branch-inventory/pkg/types"
)

// Delimiter separates the fields of a source line.
const Delimiter = ";"

// ErrShortLine is returned by ParseStrict when a line has too few fields.
var ErrShortLine = errors.New("record: line has fewer fields than expected")

// Parse converts one line (line terminator already stripped) into a Record.
func Parse(line string) types.Record {
	rec, _ := parse(line)
	return rec
}

// ParseStrict behaves like Parse but returns ErrShortLine, together with the
// partially populated record, when the line has fewer than types.FieldCount fields.
func ParseStrict(line string) (types.Record, error) {
	rec, n := parse(line)
	if n < types.FieldCount {
		return rec, fmt.Errorf("%w: got %d, want %d", ErrShortLine, n, types.FieldCount)
	}
	return rec, nil
}

// parse returns the record and the number of fields present in the line.
func parse(line string) (types.Record, int) {
	var rec types.Record

	line = strings.TrimRight(line, "\r")
	line = strings.TrimSuffix(line, Delimiter)
	if line == "" {
		return rec, 0
	}

	fields := strings.SplitN(line, Delimiter, types.FieldCount+1)
	if len(fields) > types.FieldCount {
		// extra segments past the eighth are ignored
		fields = fields[:types.FieldCount]
	}

	for i, f := range fields {
		switch i {
		case 0:
			rec.OperationID = truncate(f, types.OperationIDWidth)
		case 1:
			rec.StartedAt = truncate(f, types.TimestampWidth)
		case 2:
			rec.EndedAt = truncate(f, types.TimestampWidth)
		case 3:
			rec.UserID = truncate(f, types.UserIDWidth)
		case 4:
			rec.OperationType = truncate(f, types.OperationTypeWidth)
		case 5:
			rec.OperationCode = parseInt(f)
		case 6:
			rec.Amount = parseFloat(f)
		case 7:
			rec.Status = truncate(f, types.StatusWidth)
		}
	}

	return rec, len(fields)
}

// truncate cuts s to at most width bytes without splitting a UTF-8 sequence.
func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	cut := width
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
