package runner

import "github.com/tendant/simple-content-migrate/pkg/migrate"

// Demo migration IDs.
const (
	DemoArticles   = "demo_articles"
	DemoCategories = "demo_categories"
)

// DemoArticleMigration maps article CSV columns
// (id, langcode, title, body, image, image_alt, category).
func DemoArticleMigration(assets migrate.AssetMaterializer, rewriter *migrate.Rewriter) Migration {
	return Migration{
		ID:    DemoArticles,
		Label: "Demo article content data",
		Fields: []Field{
			{Destination: "langcode", Source: []string{"langcode"}, Steps: []Step{Default(migrate.DefaultLanguage)}},
			{Destination: "source_id", Source: []string{"id"}},
			{Destination: "title", Source: []string{"title"}, Steps: []Step{DecodeEntities()}},
			{Destination: "body", Source: []string{"body"}, Steps: []Step{ReplaceImages(rewriter)}},
			{Destination: "field_image", Source: []string{"image", "image_alt"}, Steps: []Step{Asset(assets)}},
			{Destination: "field_category", Source: []string{"category"}, Steps: []Step{DecodeEntities()}},
		},
	}
}

// DemoCategoryMigration maps category CSV columns (id, langcode, name, description).
func DemoCategoryMigration() Migration {
	return Migration{
		ID:    DemoCategories,
		Label: "Demo category data",
		Fields: []Field{
			{Destination: "langcode", Source: []string{"langcode"}, Steps: []Step{Default(migrate.DefaultLanguage)}},
			{Destination: "source_id", Source: []string{"id"}},
			{Destination: "name", Source: []string{"name"}, Steps: []Step{DecodeEntities()}},
			{Destination: "description", Source: []string{"description"}, Steps: []Step{DecodeEntities()}},
		},
	}
}
