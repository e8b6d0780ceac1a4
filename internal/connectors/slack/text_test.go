package slack

import (
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
)

func textElement(s string) slack.RichTextSectionElement {
	return &slack.RichTextSectionTextElement{Type: slack.RTSEText, Text: s}
}

func section(elems ...slack.RichTextSectionElement) *slack.RichTextSection {
	return &slack.RichTextSection{Type: slack.RTESection, Elements: elems}
}

func blocks(b ...slack.Block) slack.Blocks { return slack.Blocks{BlockSet: b} }

func TestExtractMessageText(t *testing.T) {
	tests := []struct {
		name string
		msg  func(m *slack.Message)
		want string
	}{
		{"empty", func(*slack.Message) {}, ""},
		{"plain text", func(m *slack.Message) { m.Text = "  WFH today  " }, "WFH today"},
		{
			"plain text beats attachments",
			func(m *slack.Message) {
				m.Text = "on leave tomorrow"
				m.Attachments = []slack.Attachment{{Text: "attachment text"}}
			},
			"on leave tomorrow",
		},
		{
			"attachment pretext title text",
			func(m *slack.Message) {
				m.Attachments = []slack.Attachment{{
					Pretext: "Forwarded from #general",
					Title:   "Out of office",
					Text:    "Sick leave today",
				}}
			},
			"Forwarded from #general\nOut of office\nSick leave today",
		},
		{
			"attachment fields",
			func(m *slack.Message) {
				m.Attachments = []slack.Attachment{{
					Title: "Leave request",
					Fields: []slack.AttachmentField{
						{Title: "From", Value: "2025-03-27", Short: true},
						{Value: "half day"},
					},
				}}
			},
			"Leave request\nFrom: 2025-03-27\nhalf day",
		},
		{
			"attachment fallback only when nothing else",
			func(m *slack.Message) { m.Attachments = []slack.Attachment{{Fallback: "running late"}} },
			"running late",
		},
		{
			"attachment fallback ignored with text",
			func(m *slack.Message) {
				m.Attachments = []slack.Attachment{{Text: "running late", Fallback: "fallback"}}
			},
			"running late",
		},
		{
			"header and section",
			func(m *slack.Message) {
				m.Blocks = blocks(
					&slack.HeaderBlock{Type: slack.MBTHeader, Text: &slack.TextBlockObject{Type: "plain_text", Text: "Attendance"}},
					&slack.SectionBlock{Type: slack.MBTSection, Text: &slack.TextBlockObject{Type: "mrkdwn", Text: "Leaving *early* at 4pm"}},
				)
			},
			"Attendance\nLeaving *early* at 4pm",
		},
		{
			"section fields",
			func(m *slack.Message) {
				m.Blocks = blocks(&slack.SectionBlock{
					Type: slack.MBTSection,
					Fields: []*slack.TextBlockObject{
						{Type: "mrkdwn", Text: "*Type:* WFH"},
						{Type: "mrkdwn", Text: "*When:* Friday"},
					},
				})
			},
			"*Type:* WFH\n*When:* Friday",
		},
		{
			"attachments beat blocks",
			func(m *slack.Message) {
				m.Attachments = []slack.Attachment{{Text: "from attachment"}}
				m.Blocks = blocks(&slack.SectionBlock{Type: slack.MBTSection, Text: &slack.TextBlockObject{Type: "mrkdwn", Text: "from blocks"}})
			},
			"from attachment",
		},
		{
			"rich text block",
			func(m *slack.Message) {
				m.Blocks = blocks(&slack.RichTextBlock{
					Type: slack.MBTRichText,
					Elements: []slack.RichTextElement{
						section(textElement("Leave plan")),
						&slack.RichTextList{
							Type:     slack.RTEList,
							Elements: []slack.RichTextElement{section(textElement("Monday off")), section(textElement("Tuesday WFH"))},
						},
					},
				})
			},
			"Leave plan\n- Monday off\n- Tuesday WFH",
		},
		{
			"files only",
			func(m *slack.Message) { m.Files = []slack.File{{Title: "medical.pdf"}, {Name: "note.png"}} },
			"[File: medical.pdf]\n[File: note.png]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := slack.Message{}
			tt.msg(&msg)
			assert.Equal(t, tt.want, extractMessageText(msg))
		})
	}
}

func TestExtractRichTextBlock(t *testing.T) {
	tests := []struct {
		name     string
		elements []slack.RichTextElement
		want     []string
	}{
		{"empty", []slack.RichTextElement{}, []string{}},
		{
			"section joins elements",
			[]slack.RichTextElement{section(textElement("WFH "), textElement("today"))},
			[]string{"WFH today"},
		},
		{
			"link text",
			[]slack.RichTextElement{section(
				textElement("See "),
				&slack.RichTextSectionLinkElement{Type: slack.RTSELink, Text: "calendar", URL: "https://example.com/cal"},
			)},
			[]string{"See calendar"},
		},
		{
			"link without text uses url",
			[]slack.RichTextElement{section(&slack.RichTextSectionLinkElement{Type: slack.RTSELink, URL: "https://example.com"})},
			[]string{"https://example.com"},
		},
		{
			"mixed",
			[]slack.RichTextElement{
				section(textElement("out today")),
				&slack.RichTextQuote{Type: slack.RTEQuote, Elements: []slack.RichTextSectionElement{textElement("doctor visit")}},
				&slack.RichTextPreformatted{RichTextSection: slack.RichTextSection{
					Type:     slack.RTEPreformatted,
					Elements: []slack.RichTextSectionElement{textElement("back at 3pm")},
				}},
			},
			[]string{"out today", "> doctor visit", "```\nback at 3pm\n```"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractRichTextBlock(&slack.RichTextBlock{Type: slack.MBTRichText, Elements: tt.elements})
			assert.Equal(t, tt.want, got)
		})
	}
}
