package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"traffic-safety-chatbot/models"

	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the rendering of a conversation export.
type ExportFormat string

const (
	ExportJSON  ExportFormat = "json"
	ExportExcel ExportFormat = "excel"
)

// ExportService renders an identity's stored conversation history to files
// under the configured export directory, for audit.
type ExportService struct {
	store ConversationStore
	dir   string
}

// NewExportService creates an export service writing into dir.
func NewExportService(store ConversationStore, dir string) *ExportService {
	return &ExportService{store: store, dir: dir}
}

// Export writes the identity's full stored history in the given format and
// returns the written file path. An empty history still produces a file;
// the log may have been evicted or cleared since the export was requested.
func (es *ExportService) Export(ctx context.Context, identity string, format ExportFormat) (string, error) {
	turns, err := es.store.History(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("failed to read history for export: %w", err)
	}

	export := models.ConversationExport{
		Identity:   identity,
		ExportDate: time.Now(),
		TurnCount:  len(turns),
		Turns:      turns,
	}

	if err := os.MkdirAll(es.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	switch format {
	case ExportJSON:
		return es.writeJSON(export)
	case ExportExcel:
		return es.writeExcel(export)
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}

func (es *ExportService) writeJSON(export models.ConversationExport) (string, error) {
	path := filepath.Join(es.dir, exportFileName(export, "json"))

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func (es *ExportService) writeExcel(export models.ConversationExport) (string, error) {
	path := filepath.Join(es.dir, exportFileName(export, "xlsx"))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Conversation"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create export sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"#", "Role", "Content", "Timestamp"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, turn := range export.Turns {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), turn.Role)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), turn.Content)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), turn.Timestamp.Format("2006-01-02 15:04:05"))
	}

	f.SetColWidth(sheetName, "C", "C", 80)

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save export file: %w", err)
	}
	return path, nil
}

// exportFileName keeps identities filesystem-safe; they may contain colons
// from IPv6 addresses.
func exportFileName(export models.ConversationExport, ext string) string {
	identity := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '-'
		}
	}, export.Identity)

	return fmt.Sprintf("history_%s_%s.%s", identity, export.ExportDate.Format("20060102_150405"), ext)
}
