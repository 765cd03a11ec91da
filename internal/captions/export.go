package captions

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
)

var csvHeader = []string{"filename", "caption", "status", "model", "confidence"}

// ExportResult carries a rendered export. JSON and CSV exports fill Data;
// TXT exports fill Files, one entry per asset.
type ExportResult struct {
	Format      enums.ExportFormat
	ContentType string
	Filename    string
	Data        []byte
	Files       []ExportFile
}

// ExportFile is one per-asset TXT export entry.
type ExportFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type exportRow struct {
	ID              int64      `json:"id"`
	FileName        string     `json:"filename"`
	AICaption       *string    `json:"ai_caption"`
	ManualCaption   *string    `json:"manual_caption"`
	FinalCaption    *string    `json:"final_caption"`
	Status          string     `json:"status"`
	Model           *string    `json:"model"`
	Confidence      *int       `json:"confidence"`
	TokensUsed      *int       `json:"tokens_used"`
	RejectionReason *string    `json:"rejection_reason"`
	ApprovedBy      *string    `json:"approved_by"`
	GeneratedAt     *time.Time `json:"generated_at"`
	ApprovedAt      *time.Time `json:"approved_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Export renders the dataset's captions in the requested format.
func (s *service) Export(ctx context.Context, datasetID int64, status *enums.CaptionStatus, format enums.ExportFormat) (*ExportResult, error) {
	if !format.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid export format")
	}
	if datasetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset id is required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid caption status filter")
	}
	rows, err := s.repo.ListAllByDataset(ctx, datasetID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load captions for export")
	}

	switch format {
	case enums.ExportFormatJSON:
		return renderJSON(datasetID, rows)
	case enums.ExportFormatCSV:
		return renderCSV(datasetID, rows)
	case enums.ExportFormatTXT:
		return renderTXT(rows), nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid export format")
	}
}

func renderJSON(datasetID int64, rows []CaptionWithAsset) (*ExportResult, error) {
	out := make([]exportRow, 0, len(rows))
	for _, row := range rows {
		c := row.Caption
		out = append(out, exportRow{
			ID:              c.ID,
			FileName:        row.FileName,
			AICaption:       c.AICaption,
			ManualCaption:   c.ManualCaption,
			FinalCaption:    c.FinalCaption,
			Status:          c.Status.String(),
			Model:           c.Model,
			Confidence:      c.Confidence,
			TokensUsed:      c.TokensUsed,
			RejectionReason: c.RejectionReason,
			ApprovedBy:      c.ApprovedBy,
			GeneratedAt:     c.GeneratedAt,
			ApprovedAt:      c.ApprovedAt,
			CreatedAt:       c.CreatedAt,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode export")
	}
	return &ExportResult{
		Format:      enums.ExportFormatJSON,
		ContentType: "application/json",
		Filename:    fmt.Sprintf("dataset-%d-captions.json", datasetID),
		Data:        data,
	}, nil
}

func renderCSV(datasetID int64, rows []CaptionWithAsset) (*ExportResult, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv header")
	}
	for _, row := range rows {
		c := row.Caption
		record := []string{
			row.FileName,
			c.BestText(),
			c.Status.String(),
			stringOrEmpty(c.Model),
			intOrEmpty(c.Confidence),
		}
		if err := w.Write(record); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush csv")
	}
	return &ExportResult{
		Format:      enums.ExportFormatCSV,
		ContentType: "text/csv",
		Filename:    fmt.Sprintf("dataset-%d-captions.csv", datasetID),
		Data:        buf.Bytes(),
	}, nil
}

func renderTXT(rows []CaptionWithAsset) *ExportResult {
	files := make([]ExportFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, ExportFile{
			Name:    txtFileName(row.FileName),
			Content: row.Caption.BestText(),
		})
	}
	return &ExportResult{
		Format: enums.ExportFormatTXT,
		Files:  files,
	}
}

// txtFileName strips the original extension and appends .txt.
func txtFileName(original string) string {
	base := strings.TrimSuffix(original, path.Ext(original))
	if base == "" {
		base = original
	}
	return base + ".txt"
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
