package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/roach88/tmerge/internal/ir"
)

// renderPlan writes the plan's actions and feedback as two tables.
func renderPlan(w io.Writer, plan *ir.Plan) {
	fmt.Fprintf(w, "Plan %s (%d action(s))\n", plan.ID, len(plan.Actions))

	actions := newTable(w, []string{"seq", "stmt", "kind", "effect", "partition", "old", "new", "rows"})
	for _, a := range plan.Actions {
		actions.Append([]string{
			strconv.Itoa(a.Seq),
			strconv.Itoa(a.StatementSeq),
			string(a.Kind),
			string(a.Effect),
			a.PartitionKey,
			formatPeriodPtr(plan.Domain, a.Old),
			formatPeriodPtr(plan.Domain, a.New),
			formatRowIDs(a.RowIDs),
		})
	}
	actions.Render()

	fmt.Fprintln(w)
	feedback := newTable(w, []string{"row", "status", "identity", "message"})
	for _, f := range plan.Feedback {
		identity := ""
		if len(f.Identity) > 0 {
			if b, err := ir.MarshalCanonical(f.Identity); err == nil {
				identity = string(b)
			}
		}
		feedback.Append([]string{
			strconv.FormatInt(f.RowID, 10),
			string(f.Status),
			identity,
			f.Message,
		})
	}
	feedback.Render()
	fmt.Fprintf(w, "(%s)\n", summarize(plan))
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeader(header)
	return table
}

// summarize counts DML actions and rows needing attention.
func summarize(plan *ir.Plan) string {
	errorRows := 0
	for _, f := range plan.Feedback {
		if f.Status == ir.StatusError {
			errorRows++
		}
	}
	return fmt.Sprintf("%d insert, %d update, %d delete, %d error row(s)",
		plan.Count(ir.ActionInsert), plan.Count(ir.ActionUpdate), plan.Count(ir.ActionDelete), errorRows)
}

func formatPeriodPtr(d ir.Domain, p *ir.Period) string {
	if p == nil {
		return ""
	}
	return d.FormatPeriod(*p)
}

func formatRowIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// hasErrorRows reports whether any source row failed.
func hasErrorRows(plan *ir.Plan) bool {
	for _, f := range plan.Feedback {
		if f.Status == ir.StatusError {
			return true
		}
	}
	return false
}
