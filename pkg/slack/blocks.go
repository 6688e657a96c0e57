package slack

// Block is a single Block Kit layout block.
// See https://docs.slack.dev/reference/block-kit/blocks.
type Block interface {
	BlockType() string
}

// TextObject is a Block Kit composition object.
// See https://docs.slack.dev/reference/block-kit/composition-objects/text-object.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	PlainTextType = "plain_text"
	MarkdownType  = "mrkdwn"
)

func PlainText(s string) *TextObject {
	return &TextObject{Type: PlainTextType, Text: s}
}

func Markdown(s string) *TextObject {
	return &TextObject{Type: MarkdownType, Text: s}
}

// SectionBlock displays either text, or up to 10 side-by-side fields.
// See https://docs.slack.dev/reference/block-kit/blocks/section-block.
type SectionBlock struct {
	Type    string        `json:"type"`
	BlockID string        `json:"block_id,omitempty"`
	Text    *TextObject   `json:"text,omitempty"`
	Fields  []*TextObject `json:"fields,omitempty"`
}

// MaxSectionFields is a Slack API limit.
const MaxSectionFields = 10

func (*SectionBlock) BlockType() string { return "section" }

// NewSection returns a section block with a single Markdown text.
func NewSection(text string) *SectionBlock {
	return &SectionBlock{Type: "section", Text: Markdown(text)}
}

// NewFieldsSection returns a section block with Markdown fields.
func NewFieldsSection(fields ...*TextObject) *SectionBlock {
	return &SectionBlock{Type: "section", Fields: fields}
}

// DividerBlock is a horizontal line.
// See https://docs.slack.dev/reference/block-kit/blocks/divider-block.
type DividerBlock struct {
	Type string `json:"type"`
}

func (*DividerBlock) BlockType() string { return "divider" }

func NewDivider() *DividerBlock {
	return &DividerBlock{Type: "divider"}
}

// InputBlock collects user input in modals.
// See https://docs.slack.dev/reference/block-kit/blocks/input-block.
type InputBlock struct {
	Type     string                 `json:"type"`
	BlockID  string                 `json:"block_id"`
	Label    *TextObject            `json:"label"`
	Element  *PlainTextInputElement `json:"element"`
	Optional bool                   `json:"optional,omitempty"`
}

func (*InputBlock) BlockType() string { return "input" }

// NewInput returns an input block with a single-line plain-text input element.
func NewInput(blockID, actionID, label, placeholder string) *InputBlock {
	return &InputBlock{
		Type:    "input",
		BlockID: blockID,
		Label:   PlainText(label),
		Element: &PlainTextInputElement{
			Type:        "plain_text_input",
			ActionID:    actionID,
			Placeholder: PlainText(placeholder),
		},
	}
}

// PlainTextInputElement is a free-text input field.
// See https://docs.slack.dev/reference/block-kit/block-elements/plain-text-input-element.
type PlainTextInputElement struct {
	Type        string      `json:"type"`
	ActionID    string      `json:"action_id"`
	Placeholder *TextObject `json:"placeholder,omitempty"`
}
