package synthesis

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/trialmind/trialmind/internal/domain"
)

// displayIntent is the rendering intent read from the query text.
type displayIntent int

const (
	intentNone displayIntent = iota
	intentChart
	intentTable
	intentMetric
)

// Trigger vocabularies per intent class, checked in priority order:
// chart beats table beats metric. Multi-word entries match as phrases;
// single words match tokens exactly or within edit distance one, so a
// minor typo still resolves.
var (
	chartTriggers  = []string{"survival", "curve", "trend", "over time", "chart", "graph", "plot", "kaplan", "trajectory"}
	tableTriggers  = []string{"compare", "comparison", "list", "breakdown", "table", "side by side", "versus", "by site"}
	metricTriggers = []string{"count", "rate", "status", "how many", "number", "percentage", "total"}
)

var queryFolder = cases.Fold()

// classifyQuery resolves the query's display intent. First matching
// class wins.
func classifyQuery(query string) displayIntent {
	if strings.TrimSpace(query) == "" {
		return intentNone
	}
	folded := queryFolder.String(query)
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	classes := []struct {
		intent   displayIntent
		triggers []string
	}{
		{intentChart, chartTriggers},
		{intentTable, tableTriggers},
		{intentMetric, metricTriggers},
	}
	for _, class := range classes {
		for _, trigger := range class.triggers {
			if matchesTrigger(folded, tokens, trigger) {
				return class.intent
			}
		}
	}
	return intentNone
}

func matchesTrigger(folded string, tokens []string, trigger string) bool {
	if strings.Contains(trigger, " ") {
		return strings.Contains(folded, trigger)
	}
	for _, token := range tokens {
		if token == trigger {
			return true
		}
		// Fuzzy match only where a one-letter slip is plausible.
		if len(trigger) > 4 && levenshtein.ComputeDistance(token, trigger) <= 1 {
			return true
		}
	}
	return false
}

// selectDisplay chooses how the synthesized answer should render and
// constructs the matching payload. A structured shape is only ever
// claimed when its payload could actually be built; anything else
// degrades to narrative.
func selectDisplay(kind Kind, query string, entries []entry, c computed) (domain.DisplayPreference, *domain.ChartPayload, *domain.TablePayload, []domain.MetricCard) {
	intent := classifyQuery(query)

	switch intent {
	case intentChart:
		if chart := buildChart(entries); chart != nil {
			return domain.DisplayChart, chart, nil, nil
		}
	case intentTable:
		if table := buildTable(kind, entries, c); table != nil {
			return domain.DisplayTable, nil, table, nil
		}
	case intentMetric:
		if metrics := buildMetrics(entries, c); len(metrics) > 0 {
			return domain.DisplayMetricGrid, nil, nil, metrics
		}
	}

	switch defaultDisplays[kind] {
	case domain.DisplayTable:
		if table := buildTable(kind, entries, c); table != nil {
			return domain.DisplayTable, nil, table, nil
		}
	case domain.DisplayMetricGrid:
		if metrics := buildMetrics(entries, c); len(metrics) > 0 {
			return domain.DisplayMetricGrid, nil, nil, metrics
		}
	}

	return domain.DisplayNarrative, nil, nil, nil
}

// buildChart constructs a chart from whatever plottable series the
// shared data carries. Survival curves render as Kaplan-Meier steps;
// enrollment history as a line.
func buildChart(entries []entry) *domain.ChartPayload {
	for _, e := range entries {
		if !e.success() {
			continue
		}
		if points := chartPoints(e.listField("survival_curve"), "time", "probability"); len(points) > 0 {
			return &domain.ChartPayload{
				Type:   "kaplan_meier",
				Title:  "Survival probability over time",
				XLabel: "Days",
				YLabel: "Survival probability",
				Series: []domain.ChartSeries{{Name: "survival", Points: points}},
			}
		}
		if points := chartPoints(e.listField("enrollment_trend"), "week", "enrolled"); len(points) > 0 {
			return &domain.ChartPayload{
				Type:   "line",
				Title:  "Enrollment over time",
				XLabel: "Week",
				YLabel: "Enrolled",
				Series: []domain.ChartSeries{{Name: "enrollment", Points: points}},
			}
		}
	}
	return nil
}

func chartPoints(items []map[string]any, xKey, yKey string) []domain.ChartPoint {
	points := make([]domain.ChartPoint, 0, len(items))
	for _, item := range items {
		x, okX := asFloat(item[xKey])
		y, okY := asFloat(item[yKey])
		if okX && okY {
			points = append(points, domain.ChartPoint{X: x, Y: y})
		}
	}
	return points
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// buildTable constructs a tabular breakdown. Deviation lists are the
// primary table-shaped content in the data model.
func buildTable(kind Kind, entries []entry, c computed) *domain.TablePayload {
	var rows [][]string
	for _, e := range entries {
		if !e.success() {
			continue
		}
		for _, deviation := range e.listField("deviations") {
			severity, _ := deviation["severity"].(string)
			description, _ := deviation["description"].(string)
			date, _ := deviation["date"].(string)
			rows = append(rows, []string{severity, description, date})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return &domain.TablePayload{
		Title:   "Protocol deviations",
		Columns: []string{"Severity", "Description", "Date"},
		Rows:    rows,
	}
}

// buildMetrics assembles headline metric cards from the shared data and
// the computed answer structure.
func buildMetrics(entries []entry, c computed) []domain.MetricCard {
	var cards []domain.MetricCard

	if status, ok := c.data["overall_status"].(string); ok {
		cards = append(cards, domain.MetricCard{
			Label:  "Overall status",
			Value:  status,
			Status: statusColor(status),
		})
	}
	if score, ok := c.data["risk_score"].(float64); ok {
		level, _ := c.data["risk_level"].(string)
		cards = append(cards, domain.MetricCard{
			Label:  "Risk score",
			Value:  fmt.Sprintf("%.2f", score),
			Status: riskColor(level),
		})
	}

	if count, ok := c.data["deviation_count"].(int); ok && count > 0 {
		cards = append(cards, domain.MetricCard{
			Label: "Deviations",
			Value: fmt.Sprintf("%d", count),
		})
	}

	numericCards := []struct {
		key   string
		label string
	}{
		{"enrolled_count", "Enrolled"},
		{"patient_count", "Patients"},
		{"adverse_event_count", "Adverse events"},
		{"serious_event_count", "Serious events"},
	}
	seen := map[string]bool{}
	for _, e := range entries {
		if !e.success() {
			continue
		}
		for _, card := range numericCards {
			if seen[card.key] {
				continue
			}
			if value, ok := e.numberField(card.key); ok {
				seen[card.key] = true
				cards = append(cards, domain.MetricCard{
					Label: card.label,
					Value: fmt.Sprintf("%.0f", value),
				})
			}
		}
	}
	return cards
}

func statusColor(status string) string {
	switch status {
	case "RED":
		return "red"
	case "YELLOW":
		return "yellow"
	default:
		return "green"
	}
}

func riskColor(level string) string {
	switch level {
	case "high":
		return "red"
	case "moderate":
		return "yellow"
	default:
		return "green"
	}
}
