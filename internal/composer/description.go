// Package composer builds tracker issue creation payloads from extracted tasks.
package composer

import (
	"strings"
)

const metaSeparator = " · "

// Document is a rich-text (Atlassian Document Format) description
type Document struct {
	Type    string      `json:"type"`
	Version int         `json:"version"`
	Content []Paragraph `json:"content"`
}

// Paragraph is a block of text runs
type Paragraph struct {
	Type    string `json:"type"`
	Content []Text `json:"content"`
}

// Text is a plain text run. An empty Text is valid and always serialized.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func paragraph(text string) Paragraph {
	return Paragraph{
		Type:    "paragraph",
		Content: []Text{{Type: "text", Text: text}},
	}
}

// BuildDescriptionBody renders the description followed by a metadata line
// listing whichever of labels, due date and assignee are present. The
// document always holds at least one paragraph.
func BuildDescriptionBody(description string, labels []string, dueDate, assignee string) Document {
	content := make([]Paragraph, 0, 2)
	if description != "" {
		content = append(content, paragraph(description))
	}

	meta := make([]string, 0, 3)
	if len(labels) > 0 {
		meta = append(meta, "Labels: "+strings.Join(labels, ", "))
	}
	if dueDate != "" {
		meta = append(meta, "Due: "+dueDate)
	}
	if assignee != "" {
		meta = append(meta, "Assignee: "+assignee)
	}
	if len(meta) > 0 {
		content = append(content, paragraph(strings.Join(meta, metaSeparator)))
	}

	if len(content) == 0 {
		content = append(content, paragraph(""))
	}

	return Document{
		Type:    "doc",
		Version: 1,
		Content: content,
	}
}
