package chat

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/pkg/logger"
)

var returnPeriods = []struct {
	key   string
	label string
}{
	{models.MetricReturns1D, "1-Day Return"},
	{models.MetricReturns1W, "1-Week Return"},
	{models.MetricReturns1M, "1-Month Return"},
	{models.MetricReturns3M, "3-Month Return"},
	{models.MetricReturns1Y, "1-Year Return"},
}

// compare builds a side-by-side comparison of the first two extracted
// entities. It fails soft: unresolvable or mixed-type pairs produce an
// explanatory answer, never an error.
func (e *Engine) compare(entities []string) *Response {
	// Entities beyond the first two are dropped.
	entities = entities[:2]

	logger.Info("Handling comparison", zap.Strings("entities", entities))

	var resolved []ComparisonEntry
	for _, entity := range entities {
		record, err := e.data.FinancialRecord(entity)
		if err != nil {
			continue
		}
		resolved = append(resolved, ComparisonEntry{
			Entity: entity,
			Type:   record.Type,
			Data:   record.Data,
		})
	}

	if len(resolved) < 2 {
		return newResponse(fmt.Sprintf(
			"I couldn't find enough information to compare %s.",
			strings.Join(entities, " and "),
		), 0.6)
	}

	if resolved[0].Type != resolved[1].Type {
		return newResponse(fmt.Sprintf(
			"I can't directly compare %s (%s) with %s (%s) as they are different types of financial instruments.",
			resolved[0].Entity, resolved[0].Type, resolved[1].Entity, resolved[1].Type,
		), 0.8)
	}

	name1 := displayName(resolved[0])
	name2 := displayName(resolved[1])
	data1 := resolved[0].Data
	data2 := resolved[1].Data

	table := &TableData{Headers: []string{"Metric", name1, name2, "Verdict"}}
	parts := []string{fmt.Sprintf("Comparison between %s and %s (%s):", name1, name2, resolved[0].Type)}

	if resolved[0].Type == models.TypeStock {
		if p1, p2, ok := bothFloats(data1, data2, models.MetricPrice); ok {
			higher := pick(p1 > p2, name1, name2)
			table.Rows = append(table.Rows, ComparisonRow{
				Metric:  "Current Price (₹)",
				Value1:  fmt.Sprintf("%.2f", p1),
				Value2:  fmt.Sprintf("%.2f", p2),
				Verdict: fmt.Sprintf("%.2f (%s higher)", abs(p1-p2), higher),
			})
			parts = append(parts, fmt.Sprintf("Price: %s ₹%.2f vs %s ₹%.2f", name1, p1, name2, p2))
		}

		table.Rows = append(table.Rows, returnRows(data1, data2, name1, name2)...)

		if mc1, mc2, ok := bothFloats(data1, data2, models.MetricMarketCap); ok {
			larger := pick(mc1 > mc2, name1, name2)
			table.Rows = append(table.Rows, ComparisonRow{
				Metric:  "Market Cap (₹ Cr)",
				Value1:  fmt.Sprintf("%.2f", mc1),
				Value2:  fmt.Sprintf("%.2f", mc2),
				Verdict: fmt.Sprintf("%s is larger", larger),
			})
		}

		if pe1, pe2, ok := bothFloats(data1, data2, models.MetricPERatio); ok {
			lower := pick(pe1 < pe2, name1, name2)
			table.Rows = append(table.Rows, ComparisonRow{
				Metric:  "P/E Ratio",
				Value1:  fmt.Sprintf("%.2f", pe1),
				Value2:  fmt.Sprintf("%.2f", pe2),
				Verdict: fmt.Sprintf("%s has lower P/E by %.2f", lower, abs(pe1-pe2)),
			})
		}
	} else {
		// Funds and ETFs share the NAV-based metric set.
		if n1, n2, ok := bothFloats(data1, data2, models.MetricNAV); ok {
			table.Rows = append(table.Rows, ComparisonRow{
				Metric:  "Current NAV (₹)",
				Value1:  fmt.Sprintf("%.2f", n1),
				Value2:  fmt.Sprintf("%.2f", n2),
				Verdict: fmt.Sprintf("₹%.2f difference", abs(n1-n2)),
			})
			parts = append(parts, fmt.Sprintf("NAV: %s ₹%.2f vs %s ₹%.2f", name1, n1, name2, n2))
		}

		table.Rows = append(table.Rows, returnRows(data1, data2, name1, name2)...)

		if c1, ok1 := getString(data1, models.MetricCategory); ok1 {
			if c2, ok2 := getString(data2, models.MetricCategory); ok2 {
				verdict := "Different categories"
				if c1 == c2 {
					verdict = "Same category"
				}
				table.Rows = append(table.Rows, ComparisonRow{
					Metric: "Category", Value1: c1, Value2: c2, Verdict: verdict,
				})
			}
		}

		if er1, er2, ok := bothFloats(data1, data2, models.MetricExpenseRatio); ok {
			lower := pick(er1 < er2, name1, name2)
			table.Rows = append(table.Rows, ComparisonRow{
				Metric:  "Expense Ratio (%)",
				Value1:  fmt.Sprintf("%.2f%%", er1),
				Value2:  fmt.Sprintf("%.2f%%", er2),
				Verdict: fmt.Sprintf("%s has lower expense by %.2f%%", lower, abs(er1-er2)),
			})
		}
	}

	resp := newResponse(strings.Join(parts, "\n"), 0.9)
	resp.ComparisonData = resolved
	resp.TableData = table
	return resp
}

func returnRows(data1, data2 map[string]any, name1, name2 string) []ComparisonRow {
	var rows []ComparisonRow
	for _, period := range returnPeriods {
		v1, v2, ok := bothFloats(data1, data2, period.key)
		if !ok {
			continue
		}
		better := pick(v1 > v2, name1, name2)
		rows = append(rows, ComparisonRow{
			Metric:  period.label + " (%)",
			Value1:  fmt.Sprintf("%+.2f%%", v1),
			Value2:  fmt.Sprintf("%+.2f%%", v2),
			Verdict: fmt.Sprintf("%.2f%% (%s better)", abs(v1-v2), better),
		})
	}
	return rows
}

func bothFloats(data1, data2 map[string]any, key string) (float64, float64, bool) {
	v1, ok1 := getFloat(data1, key)
	v2, ok2 := getFloat(data2, key)
	return v1, v2, ok1 && ok2
}

func pick(first bool, a, b string) string {
	if first {
		return a
	}
	return b
}

func displayName(entry ComparisonEntry) string {
	if name, ok := getString(entry.Data, "name"); ok {
		return name
	}
	if name, ok := getString(entry.Data, "scheme_name"); ok {
		return name
	}
	return entry.Entity
}
