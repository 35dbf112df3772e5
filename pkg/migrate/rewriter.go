package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AssetMaterializer is the subset of Materializer used by Rewriter.
type AssetMaterializer interface {
	Materialize(ctx context.Context, row *Row, ref AssetReference) (*MediaRecord, error)
}

// Rewriter replaces inline <img> tags with media embed directives.
type Rewriter struct {
	assets  AssetMaterializer
	embed   EmbedConfig
	baseURI string
	sink    MessageSink
	logger  *slog.Logger
}

var quoteUnescaper = strings.NewReplacer(`\"`, `"`, `\'`, `'`)

// NewRewriter creates a Rewriter. When assets is a *Materializer it is
// switched to the image bundle.
func NewRewriter(assets AssetMaterializer, opts ...Option) (*Rewriter, error) {
	if assets == nil {
		return nil, fmt.Errorf("asset materializer is required")
	}
	if m, ok := assets.(*Materializer); ok {
		assets = m.WithBundle(BundleImage)
	}

	o := buildOptions(opts)
	return &Rewriter{
		assets:  assets,
		embed:   o.embed.withDefaults(),
		baseURI: strings.TrimSuffix(o.baseURI, "/"),
		sink:    o.sink,
		logger:  o.logger.With("component", "replace_images"),
	}, nil
}

// Rewrite returns text with every matching image tag replaced by an embed
// directive. The boolean is false when text is empty and there is nothing to
// return.
//
// Tags are handled independently: a tag whose image cannot be materialized is
// kept exactly as it appeared in the input.
func (r *Rewriter) Rewrite(ctx context.Context, row *Row, text string) (string, bool) {
	if text == "" {
		return "", false
	}

	text = quoteUnescaper.Replace(text)
	tags := scanImageTags(text, r.baseURI)
	if len(tags) == 0 {
		return text, true
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, tag := range tags {
		b.WriteString(text[last:tag.start])
		b.WriteString(r.replace(ctx, row, text[tag.start:tag.end], tag))
		last = tag.end
	}
	b.WriteString(text[last:])

	return b.String(), true
}

func (r *Rewriter) replace(ctx context.Context, row *Row, original string, tag imageTag) string {
	media, err := r.assets.Materialize(ctx, row, AssetReference{URI: tag.src})
	if err != nil {
		r.logger.Error("Failed to materialize inline image", "src", tag.src, "error", err)
		r.sink.SaveMessage(ctx, row, MessageError, err.Error())
		return original
	}
	if media == nil {
		return original
	}

	return EmbedDirective{MediaUUID: media.UUID, Align: tag.align}.Render(r.embed)
}
