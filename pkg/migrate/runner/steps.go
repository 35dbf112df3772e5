package runner

import (
	"context"
	"fmt"

	"github.com/tendant/simple-content-migrate/pkg/migrate"
)

// Step transforms a field value. Steps run in order, each receiving the
// previous step's output; a nil value means "no value".
type Step func(ctx context.Context, row *migrate.Row, value any) (any, error)

// Default replaces a nil or empty string value with v.
func Default(v any) Step {
	return func(ctx context.Context, row *migrate.Row, value any) (any, error) {
		if value == nil {
			return v, nil
		}
		if s, ok := value.(string); ok && s == "" {
			return v, nil
		}
		return value, nil
	}
}

// DecodeEntities decodes HTML entities in a string value.
func DecodeEntities() Step {
	return func(ctx context.Context, row *migrate.Row, value any) (any, error) {
		switch v := value.(type) {
		case nil:
			return nil, nil
		case string:
			return migrate.DecodeEntities(v), nil
		default:
			return nil, fmt.Errorf("decode entities: expected string, got %T", value)
		}
	}
}

// ReplaceImages rewrites inline images in a string value.
func ReplaceImages(r *migrate.Rewriter) Step {
	return func(ctx context.Context, row *migrate.Row, value any) (any, error) {
		switch v := value.(type) {
		case nil:
			return nil, nil
		case string:
			out, ok := r.Rewrite(ctx, row, v)
			if !ok {
				return nil, nil
			}
			return out, nil
		default:
			return nil, fmt.Errorf("replace images: expected string, got %T", value)
		}
	}
}

// Asset materializes the referenced asset and yields the media ID.
func Asset(assets migrate.AssetMaterializer) Step {
	return func(ctx context.Context, row *migrate.Row, value any) (any, error) {
		ref, err := migrate.ParseAssetReference(value)
		if err != nil {
			return nil, err
		}
		media, err := assets.Materialize(ctx, row, ref)
		if err != nil {
			return nil, err
		}
		if media == nil {
			return nil, nil
		}
		return media.ID, nil
	}
}
