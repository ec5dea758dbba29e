package export

import (
	"bytes"
	"fmt"

	"github.com/avelor/levelbot/internal/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Leaderboard"

// BuildLeaderboardWorkbook renders a guild's progress rows into an XLSX
// workbook, ranked as given. resolveName maps user IDs to display
// names; a nil resolver falls back to the raw ID.
func BuildLeaderboardWorkbook(entries []models.UserProgress, resolveName func(userID string) string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []string{"Rank", "User", "Level", "XP", "Total XP"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, entry := range entries {
		name := entry.UserID
		if resolveName != nil {
			name = resolveName(entry.UserID)
		}

		values := []interface{}{row + 1, name, entry.Level, entry.XP, entry.TotalXP}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row+1, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return &buf, nil
}
