package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/markbang/cyop/pkg/migrate"
)

func TestCaptionsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_media_assets_and_captions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no captions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS media_assets",
		"storage_key    TEXT NOT NULL UNIQUE",
		"CREATE TABLE IF NOT EXISTS captions",
		"FOREIGN KEY (media_asset_id) REFERENCES media_assets(id) ON DELETE CASCADE",
		"CHECK (confidence IS NULL OR (confidence >= 0 AND confidence <= 100))",
		"DROP TABLE IF EXISTS captions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
