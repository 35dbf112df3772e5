package migrate

import (
	"html"
	"strings"

	"github.com/google/uuid"
)

// EmbedConfig controls the markup produced for an embed directive.
type EmbedConfig struct {
	Tag         string
	EmbedButton string
	DisplayMode string
	EntityType  string
}

// DefaultEmbedConfig returns the media browser embed used by article bodies.
func DefaultEmbedConfig() EmbedConfig {
	return EmbedConfig{
		Tag:         "drupal-entity",
		EmbedButton: "media_browser",
		DisplayMode: "view_mode:media.embedded",
		EntityType:  "media",
	}
}

func (c EmbedConfig) withDefaults() EmbedConfig {
	d := DefaultEmbedConfig()
	if c.Tag == "" {
		c.Tag = d.Tag
	}
	if c.EmbedButton == "" {
		c.EmbedButton = d.EmbedButton
	}
	if c.DisplayMode == "" {
		c.DisplayMode = d.DisplayMode
	}
	if c.EntityType == "" {
		c.EntityType = d.EntityType
	}
	return c
}

// EmbedDirective references a media entity from rich text.
type EmbedDirective struct {
	MediaUUID uuid.UUID
	Align     Alignment
}

// Render writes the directive as an element, e.g.
//
//	<drupal-entity data-embed-button="media_browser" data-entity-embed-display="view_mode:media.embedded" data-entity-type="media" data-align="left" data-entity-uuid="..."></drupal-entity>
func (d EmbedDirective) Render(cfg EmbedConfig) string {
	cfg = cfg.withDefaults()

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(cfg.Tag)
	writeAttr(&b, "data-embed-button", cfg.EmbedButton)
	writeAttr(&b, "data-entity-embed-display", cfg.DisplayMode)
	writeAttr(&b, "data-entity-type", cfg.EntityType)
	if d.Align != AlignNone {
		writeAttr(&b, "data-align", string(d.Align))
	}
	writeAttr(&b, "data-entity-uuid", d.MediaUUID.String())
	b.WriteString("></")
	b.WriteString(cfg.Tag)
	b.WriteString(">")
	return b.String()
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(value))
	b.WriteString(`"`)
}
