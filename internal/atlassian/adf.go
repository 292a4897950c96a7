package atlassian

import "strings"

// Atlassian Document Format support. Jira v3 endpoints require rich text
// bodies (descriptions, comments) as ADF documents; plain text crosses the
// boundary in both directions.

// toADF converts plain text to an ADF document, one paragraph per line.
// Blank lines become empty paragraphs so spacing survives the round trip.
func toADF(text string) map[string]interface{} {
	lines := strings.Split(text, "\n")
	paragraphs := make([]interface{}, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			paragraphs = append(paragraphs, map[string]interface{}{
				"type":    "paragraph",
				"content": []interface{}{},
			})

			continue
		}

		paragraphs = append(paragraphs, map[string]interface{}{
			"type": "paragraph",
			"content": []interface{}{
				map[string]interface{}{"type": "text", "text": line},
			},
		})
	}

	return map[string]interface{}{
		"type":    "doc",
		"version": 1,
		"content": paragraphs,
	}
}

// fromADF flattens an ADF document to plain text, one line per top-level
// block.
func fromADF(doc map[string]interface{}) string {
	if len(doc) == 0 {
		return ""
	}

	blocks := getSlice(doc, "content")
	lines := make([]string, 0, len(blocks))

	for _, block := range blocks {
		node, ok := block.(map[string]interface{})
		if !ok {
			continue
		}

		lines = append(lines, adfNodeText(node))
	}

	return strings.Join(lines, "\n")
}

func adfNodeText(node map[string]interface{}) string {
	if len(node) == 0 {
		return ""
	}

	switch getString(node, "type") {
	case "text":
		return getString(node, "text")

	case "bulletList", "orderedList":
		bulleted := getString(node, "type") == "bulletList"
		items := make([]string, 0)

		for _, child := range getSlice(node, "content") {
			childNode, ok := child.(map[string]interface{})
			if !ok {
				continue
			}

			text := adfNodeText(childNode)
			if bulleted {
				text = "- " + text
			}

			items = append(items, text)
		}

		return strings.Join(items, "\n")

	case "codeBlock":
		return "```\n" + childText(node) + "\n```"

	default:
		return childText(node)
	}
}

func childText(node map[string]interface{}) string {
	var sb strings.Builder

	for _, child := range getSlice(node, "content") {
		childNode, ok := child.(map[string]interface{})
		if !ok {
			continue
		}

		sb.WriteString(adfNodeText(childNode))
	}

	return sb.String()
}
