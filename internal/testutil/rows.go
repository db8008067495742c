package testutil

import (
	"fmt"

	"github.com/roach88/tmerge/internal/ir"
)

// P builds a payload from alternating column/value pairs. Go values are
// converted with ir.FromAny, so nil becomes an explicit null:
//
//	P("a", 1, "b", nil)
func P(kv ...any) ir.Payload {
	if len(kv)%2 != 0 {
		panic("testutil.P: odd number of arguments")
	}
	p := make(ir.Payload, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		col, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("testutil.P: column %v is not a string", kv[i]))
		}
		v, err := ir.FromAny(kv[i+1])
		if err != nil {
			panic(err)
		}
		p[col] = v
	}
	return p
}

// K builds identity keys the same way P builds payloads.
func K(kv ...any) ir.Keys {
	return ir.Keys(P(kv...))
}

// Per builds a period without validation.
func Per(from, until ir.Point) ir.Period {
	return ir.Period{From: from, Until: until}
}

// Day parses an ISO date into a date-domain point.
func Day(s string) ir.Point {
	return ir.DomainDate.MustParse(s)
}

// Days builds a date-domain period from two ISO dates.
func Days(from, until string) ir.Period {
	return Per(Day(from), Day(until))
}

// Src builds a source row without identity keys.
func Src(rowID int64, period ir.Period, data ir.Payload) ir.SourceRow {
	return ir.SourceRow{RowID: rowID, Period: period, Data: data}
}

// SrcKey builds a source row carrying a stable key.
func SrcKey(rowID int64, keys ir.Keys, period ir.Period, data ir.Payload) ir.SourceRow {
	return ir.SourceRow{RowID: rowID, Identity: keys, Period: period, Data: data}
}

// Tgt builds a target row.
func Tgt(keys ir.Keys, period ir.Period, data ir.Payload) ir.TargetRow {
	return ir.TargetRow{Identity: keys, Period: period, Data: data}
}

// Config returns an integer-era configuration keyed by "id" in mode.
func Config(mode ir.MergeMode) *ir.Config {
	return &ir.Config{
		Mode:            mode,
		DeleteMode:      ir.DeleteNone,
		Era:             ir.Era{Name: "valid", Domain: ir.DomainInteger, ValidFrom: "valid_from", ValidUntil: "valid_until"},
		IdentityColumns: []string{"id"},
	}
}
