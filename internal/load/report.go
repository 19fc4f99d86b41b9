package load

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"salesetl/internal/dataset"
	"salesetl/internal/transform"
	"salesetl/internal/validate"
)

// SummaryKinds are the business reports GenerateSummary can produce.
var SummaryKinds = []string{"sales_summary", "product_performance", "customer_segmentation"}

// ReportGenerator writes markdown report artifacts under Dir.
type ReportGenerator struct {
	Dir string
}

// GenerateSource writes the per-source markdown report: metrics for the
// loaded dataset plus any validation findings.
func (g ReportGenerator) GenerateSource(source string, m *transform.Metrics, violations []validate.Violation) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Sales Report: %s\n\n", source)
	fmt.Fprintf(&b, "- Total revenue: %.2f\n", m.TotalRevenue)
	fmt.Fprintf(&b, "- Orders: %d\n", m.TotalOrders)
	fmt.Fprintf(&b, "- Units sold: %d\n", m.TotalUnits)
	fmt.Fprintf(&b, "- Average order value: %.2f\n", m.AverageOrderValue)

	writeBreakdown(&b, "Revenue by category", m.ByCategory)
	writeBreakdown(&b, "Revenue by segment", m.BySegment)

	if len(violations) > 0 {
		b.WriteString("\n## Validation findings\n\n")
		b.WriteString("| Rule | Count | Detail |\n")
		b.WriteString("| --- | ---: | --- |\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", v.Rule, v.Count, v.Message)
		}
	}

	return g.write(source+"_report.md", b.String())
}

// GenerateSummary writes one of the business summary reports over the merged
// order table. Kind must be one of SummaryKinds.
func (g ReportGenerator) GenerateSummary(kind string, orders *dataset.Table) (string, error) {
	if orders == nil {
		return "", fmt.Errorf("nil input table")
	}
	switch kind {
	case "sales_summary":
		m, err := transform.MetricsCalculator{}.Calculate(orders)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString("# Sales Summary\n\n")
		fmt.Fprintf(&b, "- Total revenue: %.2f\n", m.TotalRevenue)
		fmt.Fprintf(&b, "- Orders: %d\n", m.TotalOrders)
		fmt.Fprintf(&b, "- Units sold: %d\n", m.TotalUnits)
		fmt.Fprintf(&b, "- Average order value: %.2f\n", m.AverageOrderValue)
		writeBreakdown(&b, "Revenue by category", m.ByCategory)
		writeBreakdown(&b, "Revenue by segment", m.BySegment)
		return g.write("sales_summary.md", b.String())

	case "product_performance":
		products, err := transform.ProductTransformer{}.Transform(orders)
		if err != nil {
			return "", err
		}
		return g.write("product_performance.md", tableReport("Product Performance", products, 20))

	case "customer_segmentation":
		customers, err := transform.CustomerTransformer{}.Transform(orders)
		if err != nil {
			return "", err
		}
		return g.write("customer_segmentation.md", tableReport("Customer Segmentation", customers, 20))

	default:
		return "", fmt.Errorf("unsupported report kind: %s", kind)
	}
}

func (g ReportGenerator) write(name, content string) (string, error) {
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(g.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func writeBreakdown(b *strings.Builder, title string, rows []transform.Breakdown) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	b.WriteString("| Key | Orders | Units | Revenue |\n")
	b.WriteString("| --- | ---: | ---: | ---: |\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %d | %d | %.2f |\n", r.Key, r.Orders, r.Units, r.Revenue)
	}
}

// tableReport renders the first limit rows of a table as a markdown table.
func tableReport(title string, t *dataset.Table, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Rows: %d\n\n", t.Len())

	b.WriteString("| " + strings.Join(t.Columns, " | ") + " |\n")
	sep := make([]string, len(t.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")

	n := t.Len()
	if n > limit {
		n = limit
	}
	cells := make([]string, len(t.Columns))
	for _, r := range t.Rows[:n] {
		for i, col := range t.Columns {
			cells[i] = dataset.CellString(r[col])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	if t.Len() > limit {
		fmt.Fprintf(&b, "\n(%d more rows)\n", t.Len()-limit)
	}
	return b.String()
}
