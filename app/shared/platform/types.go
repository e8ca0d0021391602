package platform

// Color is an RGB embed colour.
type Color int

const (
	ColorYellow Color = 0xFFFF00
	ColorGreen  Color = 0x00FF00
	ColorRed    Color = 0xFF0000
)

// OutgoingMessage is rendered by the gateway. Mentions are never resolved
// unless AllowMentions is set.
type OutgoingMessage struct {
	Content       string   `json:"content,omitempty"`
	Embed         *Embed   `json:"embed,omitempty"`
	Buttons       []Button `json:"buttons,omitempty"`
	ClearButtons  bool     `json:"clear_buttons,omitempty"`
	AllowMentions bool     `json:"allow_mentions,omitempty"`
}

// Embed is a rich message card. The gateway renders AuthorID with the
// member's avatar.
type Embed struct {
	AuthorID    UserID       `json:"author_id,omitempty"`
	AuthorName  string       `json:"author_name,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       Color        `json:"color"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedField is one name/value row of an embed.
type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ButtonStyle picks the rendering of a button.
type ButtonStyle string

const (
	ButtonSecondary ButtonStyle = "secondary"
	ButtonSuccess   ButtonStyle = "success"
	ButtonDanger    ButtonStyle = "danger"
)

// Button is an interactive element; CustomID comes back in the interaction.
type Button struct {
	CustomID string      `json:"custom_id"`
	Label    string      `json:"label"`
	Style    ButtonStyle `json:"style"`
}

// InteractionRef identifies the interaction being answered.
type InteractionRef struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// InteractionResponse is an immediate reply.
type InteractionResponse struct {
	Content   string `json:"content"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

// Modal is a form of paragraph text inputs.
type Modal struct {
	CustomID string      `json:"custom_id"`
	Title    string      `json:"title"`
	Inputs   []TextInput `json:"inputs"`
}

// TextInput is one modal field.
type TextInput struct {
	CustomID    string `json:"custom_id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
}
