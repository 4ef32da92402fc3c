package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Render writes the reports as text tables.
func Render(w io.Writer, r Reports) {
	fmt.Fprintf(w, "\nRegional sales (%s)\n", r.Variant)
	regional := newTable(w, "Region", "Total sales")
	for _, row := range r.Regional {
		regional.Append([]string{row.Region, row.TotalSales.StringFixed(2)})
	}
	regional.Render()

	fmt.Fprintf(w, "\nTop %d products\n", TopProductsLimit)
	top := newTable(w, "#", "Product", "Name", "Total sales")
	for i, row := range r.TopProducts {
		top.Append([]string{fmt.Sprint(i + 1), row.ProductID, row.ProductName, row.TotalSales.StringFixed(2)})
	}
	top.Render()

	fmt.Fprintln(w, "\nMonthly sales trend")
	monthly := newTable(w, "Month", "Total sales")
	for _, row := range r.Monthly {
		monthly.Append([]string{row.Month, row.TotalSales.StringFixed(2)})
	}
	monthly.Render()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
