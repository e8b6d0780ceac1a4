package slack

import (
	"strings"

	"github.com/slack-go/slack"
)

// extractMessageText returns the readable text of msg. Plain text wins, then
// attachments, then Block Kit blocks. A message carrying only files is
// rendered as one "[File: name]" line per file.
func extractMessageText(msg slack.Message) string {
	if text := strings.TrimSpace(msg.Text); text != "" {
		return text
	}

	if parts := attachmentText(msg.Attachments); len(parts) > 0 {
		return strings.Join(parts, "\n")
	}

	if parts := blockText(msg.Blocks.BlockSet); len(parts) > 0 {
		return strings.Join(parts, "\n")
	}

	var files []string
	for _, f := range msg.Files {
		name := f.Title
		if name == "" {
			name = f.Name
		}
		if name != "" {
			files = append(files, "[File: "+name+"]")
		}
	}
	return strings.Join(files, "\n")
}

func attachmentText(attachments []slack.Attachment) []string {
	var parts []string
	for _, a := range attachments {
		var own []string
		for _, s := range []string{a.Pretext, a.Title, a.Text} {
			if s != "" {
				own = append(own, s)
			}
		}
		for _, f := range a.Fields {
			switch {
			case f.Title != "" && f.Value != "":
				own = append(own, f.Title+": "+f.Value)
			case f.Value != "":
				own = append(own, f.Value)
			}
		}
		if len(own) == 0 && a.Fallback != "" {
			own = append(own, a.Fallback)
		}
		parts = append(parts, own...)
	}
	return parts
}

func blockText(blocks []slack.Block) []string {
	var parts []string
	for _, b := range blocks {
		switch block := b.(type) {
		case *slack.HeaderBlock:
			if block.Text != nil && block.Text.Text != "" {
				parts = append(parts, block.Text.Text)
			}
		case *slack.SectionBlock:
			if block.Text != nil && block.Text.Text != "" {
				parts = append(parts, block.Text.Text)
			}
			for _, f := range block.Fields {
				if f != nil && f.Text != "" {
					parts = append(parts, f.Text)
				}
			}
		case *slack.RichTextBlock:
			parts = append(parts, extractRichTextBlock(block)...)
		}
	}
	return parts
}

// extractRichTextBlock flattens a rich_text block into lines. Lists become
// "- item", quotes "> text" and preformatted sections are fenced.
func extractRichTextBlock(block *slack.RichTextBlock) []string {
	parts := []string{}
	for _, el := range block.Elements {
		switch e := el.(type) {
		case *slack.RichTextSection:
			if s := sectionText(e.Elements); s != "" {
				parts = append(parts, s)
			}
		case *slack.RichTextList:
			for _, item := range e.Elements {
				if sec, ok := item.(*slack.RichTextSection); ok {
					if s := sectionText(sec.Elements); s != "" {
						parts = append(parts, "- "+s)
					}
				}
			}
		case *slack.RichTextQuote:
			if s := sectionText(e.Elements); s != "" {
				parts = append(parts, "> "+s)
			}
		case *slack.RichTextPreformatted:
			if s := sectionText(e.Elements); s != "" {
				parts = append(parts, "```\n"+s+"\n```")
			}
		}
	}
	return parts
}

func sectionText(elements []slack.RichTextSectionElement) string {
	var sb strings.Builder
	for _, el := range elements {
		switch e := el.(type) {
		case *slack.RichTextSectionTextElement:
			sb.WriteString(e.Text)
		case *slack.RichTextSectionLinkElement:
			if e.Text != "" {
				sb.WriteString(e.Text)
			} else {
				sb.WriteString(e.URL)
			}
		}
	}
	return sb.String()
}
