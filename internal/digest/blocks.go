package digest

// Payload is the webhook request body: a Block Kit block list.
type Payload struct {
	Blocks []Block `json:"blocks"`
}

// Block is a single Block Kit block. Text is only set for header and
// section blocks.
type Block struct {
	Type string `json:"type"`
	Text *Text  `json:"text,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Block and text type identifiers.
const (
	blockTypeHeader  = "header"
	blockTypeDivider = "divider"
	blockTypeSection = "section"

	textTypePlain  = "plain_text"
	textTypeMrkdwn = "mrkdwn"
)

// HeaderBlock builds a plain-text header block.
func HeaderBlock(title string) Block {
	return Block{
		Type: blockTypeHeader,
		Text: &Text{Type: textTypePlain, Text: title, Emoji: true},
	}
}

// DividerBlock builds a divider block.
func DividerBlock() Block {
	return Block{Type: blockTypeDivider}
}

// SectionBlock builds a mrkdwn section block.
func SectionBlock(text string) Block {
	return Block{
		Type: blockTypeSection,
		Text: &Text{Type: textTypeMrkdwn, Text: text},
	}
}
