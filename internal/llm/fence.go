package llm

import "strings"

// StripCodeFence removes a markdown code fence (```json ... ```) wrapped
// around a model response. Text without a leading fence is returned trimmed.
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		// Drop the language tag line.
		if tag := strings.TrimSpace(content[:nl]); !strings.ContainsAny(tag, "{[") {
			content = content[nl+1:]
		}
	}
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
