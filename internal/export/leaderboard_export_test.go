package export

import (
	"testing"

	"github.com/avelor/levelbot/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestBuildLeaderboardWorkbook(t *testing.T) {
	entries := []models.UserProgress{
		{GuildID: "g1", UserID: "u1", Level: 6, XP: 48, TotalXP: 1000},
		{GuildID: "g1", UserID: "u2", Level: 2, XP: 18, TotalXP: 150},
	}
	names := map[string]string{"u1": "alice", "u2": "bob"}

	buf, err := BuildLeaderboardWorkbook(entries, func(id string) string { return names[id] })
	if err != nil {
		t.Fatalf("BuildLeaderboardWorkbook failed: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	tests := []struct {
		cell string
		want string
	}{
		{"A1", "Rank"},
		{"E1", "Total XP"},
		{"A2", "1"},
		{"B2", "alice"},
		{"C2", "6"},
		{"E2", "1000"},
		{"B3", "bob"},
		{"E3", "150"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(sheetName, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) failed: %v", tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("cell %s = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

func TestBuildLeaderboardWorkbookNilResolver(t *testing.T) {
	entries := []models.UserProgress{
		{GuildID: "g1", UserID: "u9", Level: 1, XP: 0, TotalXP: 0},
	}

	buf, err := BuildLeaderboardWorkbook(entries, nil)
	if err != nil {
		t.Fatalf("BuildLeaderboardWorkbook failed: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue(sheetName, "B2")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if got != "u9" {
		t.Errorf("user cell = %q, want raw ID %q", got, "u9")
	}
}
