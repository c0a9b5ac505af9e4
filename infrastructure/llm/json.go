package llm

import "strings"

// ExtractJSON pulls the first JSON object out of a model response that
// may contain surrounding prose or markdown code fences. It returns the
// empty string when no balanced object is found.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```json") {
		start := strings.Index(response, "```json") + len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	if strings.Contains(response, "```") {
		start := strings.Index(response, "```") + 3
		// Skip a language identifier on the fence line, if any.
		if nl := strings.Index(response[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			candidate := strings.TrimSpace(response[start : start+end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	// Walk to the matching closing brace, skipping braces inside strings.
	braceCount := 0
	inString := false
	escapeNext := false
	for i := start; i < len(response); i++ {
		char := response[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}
