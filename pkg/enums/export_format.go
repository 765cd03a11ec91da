package enums

import "fmt"

// ExportFormat selects the serialization produced by a caption export.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatTXT  ExportFormat = "txt"
)

var validExportFormats = []ExportFormat{
	ExportFormatJSON,
	ExportFormatCSV,
	ExportFormatTXT,
}

func (f ExportFormat) String() string {
	return string(f)
}

func (f ExportFormat) IsValid() bool {
	for _, candidate := range validExportFormats {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseExportFormat converts raw input into an ExportFormat.
func ParseExportFormat(value string) (ExportFormat, error) {
	for _, candidate := range validExportFormats {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid export format %q", value)
}
