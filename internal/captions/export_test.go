package captions

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/markbang/cyop/pkg/db/models"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
)

func exportFixtureRows() []CaptionWithAsset {
	model := "gpt-4o"
	confidence := 90
	final := `He said "hi"`
	ai := "a cat on a sofa"
	return []CaptionWithAsset{
		{
			Caption: models.Caption{
				ID:           1,
				MediaAssetID: 1,
				FinalCaption: &final,
				Status:       enums.CaptionStatusApproved,
				Model:        &model,
				Confidence:   &confidence,
			},
			FileName: "cat.jpg",
		},
		{
			Caption: models.Caption{
				ID:           2,
				MediaAssetID: 2,
				AICaption:    &ai,
				Status:       enums.CaptionStatusCompleted,
				Model:        &model,
			},
			FileName: "dog.png",
		},
	}
}

func TestExportJSON(t *testing.T) {
	repo := newStubRepo()
	repo.listRows = exportFixtureRows()
	svc := mustService(t, repo)

	result, err := svc.Export(context.Background(), 5, nil, enums.ExportFormatJSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.ContentType != "application/json" || result.Filename != "dataset-5-captions.json" {
		t.Fatalf("unexpected envelope %+v", result)
	}

	var rows []map[string]any
	if err := json.Unmarshal(result.Data, &rows); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["filename"] != "cat.jpg" {
		t.Fatalf("expected filename in row, got %v", rows[0]["filename"])
	}
	if rows[1]["final_caption"] != nil {
		t.Fatalf("expected null final caption, got %v", rows[1]["final_caption"])
	}
}

func TestExportCSVEscapesQuotes(t *testing.T) {
	repo := newStubRepo()
	repo.listRows = exportFixtureRows()
	svc := mustService(t, repo)

	result, err := svc.Export(context.Background(), 5, nil, enums.ExportFormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.ContentType != "text/csv" || result.Filename != "dataset-5-captions.csv" {
		t.Fatalf("unexpected envelope %+v", result)
	}

	lines := strings.Split(strings.TrimRight(string(result.Data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 records, got %d lines", len(lines))
	}
	if lines[0] != "filename,caption,status,model,confidence" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != `cat.jpg,"He said ""hi""",approved,gpt-4o,90` {
		t.Fatalf("unexpected first record %q", lines[1])
	}
	if lines[2] != "dog.png,a cat on a sofa,completed,gpt-4o," {
		t.Fatalf("unexpected second record %q", lines[2])
	}
}

func TestExportTXTWritesOneFilePerAsset(t *testing.T) {
	repo := newStubRepo()
	repo.listRows = exportFixtureRows()
	svc := mustService(t, repo)

	result, err := svc.Export(context.Background(), 5, nil, enums.ExportFormatTXT)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(result.Files))
	}
	if result.Files[0].Name != "cat.txt" || result.Files[0].Content != `He said "hi"` {
		t.Fatalf("unexpected first file %+v", result.Files[0])
	}
	if result.Files[1].Name != "dog.txt" || result.Files[1].Content != "a cat on a sofa" {
		t.Fatalf("unexpected second file %+v", result.Files[1])
	}
}

func TestExportRejectsInvalidFormat(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	_, err := svc.Export(context.Background(), 5, nil, enums.ExportFormat("yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestTxtFileNameStripsExtension(t *testing.T) {
	cases := map[string]string{
		"cat.jpg":       "cat.txt",
		"dog.png":       "dog.txt",
		"archive.tar":   "archive.txt",
		"no-extension":  "no-extension.txt",
		".hidden":       ".hidden.txt",
		"dots.in.a.jpg": "dots.in.a.txt",
	}
	for in, want := range cases {
		if got := txtFileName(in); got != want {
			t.Fatalf("txtFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
