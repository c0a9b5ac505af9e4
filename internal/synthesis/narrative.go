package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trialmind/trialmind/internal/domain"
)

// computed is the structured answer a synthesis kind derives before any
// prose is written. The narrative rendering must only restate what is
// in here.
type computed struct {
	data  map[string]any
	facts []string
}

func compute(kind Kind, entries []entry) computed {
	switch kind {
	case KindReadiness:
		return computeReadiness(entries)
	case KindSafetyBrief:
		return computeSafetyBrief(entries)
	case KindDeviationBrief:
		return computeDeviationBrief(entries)
	case KindRiskBrief:
		return computeRiskBrief(entries)
	case KindDashboard:
		return computeDashboard(entries)
	default:
		return computeSummary(entries)
	}
}

// fallbackNarrative renders the computed facts as plain prose. Used
// verbatim when no generation backend is configured or its call fails.
func (c computed) fallbackNarrative() string {
	if len(c.facts) == 0 {
		return "No findings available."
	}
	return strings.Join(c.facts, " ")
}

func computeSummary(entries []entry) computed {
	c := computed{data: map[string]any{}}
	findings := make(map[string]any)
	for _, e := range entries {
		if !e.success() {
			continue
		}
		if text := e.narrative(); text != "" {
			findings[string(e.kind)] = text
			c.facts = append(c.facts, fmt.Sprintf("%s: %s", e.kind, text))
			continue
		}
		if keys := contentKeys(e); len(keys) > 0 {
			findings[string(e.kind)] = keys
			c.facts = append(c.facts, fmt.Sprintf("%s reported %s.", e.kind, strings.Join(keys, ", ")))
		}
	}
	c.data["findings"] = findings
	return c
}

func computeReadiness(entries []entry) computed {
	c := computed{data: map[string]any{}}
	var blocking []string

	for _, e := range entries {
		if !e.success() {
			continue
		}
		for _, deviation := range e.listField("deviations") {
			severity, _ := deviation["severity"].(string)
			if severity == "critical" || severity == "major" {
				description, _ := deviation["description"].(string)
				if description == "" {
					description = "unspecified deviation"
				}
				blocking = append(blocking, fmt.Sprintf("%s deviation: %s", severity, description))
			}
		}
		if e.kind == domain.WorkerProtocol {
			for _, missing := range e.listField("missing_assessments") {
				name, _ := missing["name"].(string)
				if name == "" {
					name = "unnamed assessment"
				}
				blocking = append(blocking, fmt.Sprintf("missing assessment: %s", name))
			}
		}
	}

	ready := len(blocking) == 0
	c.data["ready"] = ready
	c.data["blocking_issues"] = blocking
	if ready {
		c.facts = append(c.facts, "No blocking issues were found; the subject is ready to proceed.")
	} else {
		c.facts = append(c.facts, fmt.Sprintf("Not ready: %d blocking issue(s) found.", len(blocking)))
		c.facts = append(c.facts, blocking...)
	}
	return c
}

func computeSafetyBrief(entries []entry) computed {
	c := computed{data: map[string]any{}}
	var adverse, serious, patients float64
	var havePatients bool

	for _, e := range entries {
		if !e.success() || e.kind != domain.WorkerSafety {
			continue
		}
		if v, ok := e.numberField("adverse_event_count"); ok {
			adverse = v
		}
		if v, ok := e.numberField("serious_event_count"); ok {
			serious = v
		}
		if v, ok := e.numberField("patient_count"); ok {
			patients, havePatients = v, true
		}
	}

	c.data["adverse_event_count"] = adverse
	c.data["serious_event_count"] = serious
	c.facts = append(c.facts, fmt.Sprintf("%.0f adverse event(s) recorded, %.0f serious.", adverse, serious))
	if havePatients && patients > 0 {
		rate := adverse / patients
		c.data["patient_count"] = patients
		c.data["event_rate"] = rate
		c.facts = append(c.facts, fmt.Sprintf("Across %.0f patient(s), the adverse event rate is %.2f per patient.", patients, rate))
	}
	if serious > 0 {
		c.data["serious_signal"] = true
		c.facts = append(c.facts, "Serious events are present and warrant review.")
	}
	return c
}

func computeDeviationBrief(entries []entry) computed {
	c := computed{data: map[string]any{}}
	var deviations []map[string]any
	bySeverity := map[string]int{}

	for _, e := range entries {
		if !e.success() || e.kind != domain.WorkerCompliance {
			continue
		}
		for _, deviation := range e.listField("deviations") {
			deviations = append(deviations, deviation)
			severity, _ := deviation["severity"].(string)
			if severity == "" {
				severity = "unclassified"
			}
			bySeverity[severity]++
		}
	}

	c.data["deviations"] = deviations
	c.data["deviation_count"] = len(deviations)
	c.data["by_severity"] = bySeverity
	if len(deviations) == 0 {
		c.facts = append(c.facts, "No protocol deviations were recorded.")
		return c
	}
	c.facts = append(c.facts, fmt.Sprintf("%d protocol deviation(s) recorded.", len(deviations)))
	severities := make([]string, 0, len(bySeverity))
	for severity := range bySeverity {
		severities = append(severities, severity)
	}
	sort.Strings(severities)
	for _, severity := range severities {
		c.facts = append(c.facts, fmt.Sprintf("%d %s.", bySeverity[severity], severity))
	}
	return c
}

func computeRiskBrief(entries []entry) computed {
	c := computed{data: map[string]any{}}
	var score float64
	var factors []string

	for _, e := range entries {
		if !e.success() {
			continue
		}
		if hr, ok := e.numberField("hazard_ratio"); ok && hr > 0 {
			// Maps any positive hazard ratio into (0,1): 1.0 -> 0.5,
			// rising toward 1 as the ratio grows.
			score = hr / (hr + 1)
			factors = append(factors, fmt.Sprintf("hazard ratio %.2f", hr))
		}
		for _, factor := range e.listField("risk_factors") {
			name, _ := factor["name"].(string)
			if name == "" {
				name = "unnamed factor"
			}
			weight, _ := factor["weight"].(float64)
			if weight <= 0 {
				weight = 0.05
			}
			score += weight
			factors = append(factors, name)
		}
	}

	score = domain.ClampConfidence(score)
	level := "low"
	switch {
	case score >= 0.7:
		level = "high"
	case score >= 0.4:
		level = "moderate"
	}

	c.data["risk_score"] = score
	c.data["risk_level"] = level
	c.data["risk_factors"] = factors
	c.facts = append(c.facts, fmt.Sprintf("Combined risk score %.2f (%s).", score, level))
	if len(factors) > 0 {
		c.facts = append(c.facts, "Contributing factors: "+strings.Join(factors, ", ")+".")
	}
	return c
}

func computeDashboard(entries []entry) computed {
	c := computed{data: map[string]any{}}
	var critical []string
	var warnings []string

	for _, e := range entries {
		if !e.success() {
			warnings = append(warnings, fmt.Sprintf("%s worker unavailable", e.kind))
			continue
		}
		switch e.kind {
		case domain.WorkerSafety:
			if serious, ok := e.numberField("serious_event_count"); ok && serious > 0 {
				critical = append(critical, fmt.Sprintf("%.0f serious adverse event(s)", serious))
			} else if adverse, ok := e.numberField("adverse_event_count"); ok && adverse > 0 {
				warnings = append(warnings, fmt.Sprintf("%.0f adverse event(s)", adverse))
			}
		case domain.WorkerCompliance:
			for _, deviation := range e.listField("deviations") {
				severity, _ := deviation["severity"].(string)
				if severity == "critical" {
					critical = append(critical, "critical protocol deviation")
				} else {
					warnings = append(warnings, "protocol deviation")
				}
			}
		case domain.WorkerData:
			if enrolled, ok := e.numberField("enrolled_count"); ok {
				c.data["enrolled_count"] = enrolled
				if target, ok := e.numberField("target_count"); ok && target > 0 {
					c.data["target_count"] = target
					if enrolled/target < 0.5 {
						warnings = append(warnings, "enrollment below half of target")
					}
				}
			}
		}
		if e.boolField("critical_flag") {
			critical = append(critical, fmt.Sprintf("%s raised a critical flag", e.kind))
		}
	}

	status := "GREEN"
	switch {
	case len(critical) > 0:
		status = "RED"
	case len(warnings) >= 2:
		status = "YELLOW"
	}

	c.data["overall_status"] = status
	c.data["critical_flags"] = critical
	c.data["warnings"] = warnings
	c.facts = append(c.facts, fmt.Sprintf("Overall study status: %s.", status))
	if len(critical) > 0 {
		c.facts = append(c.facts, "Critical: "+strings.Join(critical, "; ")+".")
	}
	if len(warnings) > 0 {
		c.facts = append(c.facts, "Warnings: "+strings.Join(warnings, "; ")+".")
	}
	return c
}

// contentKeys lists the analytical field names an entry's data carries,
// sorted for deterministic output.
func contentKeys(e entry) []string {
	var keys []string
	for key := range e.data() {
		if !bookkeepingKeys[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
