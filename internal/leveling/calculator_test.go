package leveling

import "testing"

func TestXPNeededForLevel(t *testing.T) {
	tests := []struct {
		name  string
		level int
		want  int64
	}{
		{
			name:  "Level 1",
			level: 1,
			want:  110, // floor(1 * 100 * 1.1)
		},
		{
			name:  "Level 2",
			level: 2,
			want:  242, // floor(2 * 100 * 1.21)
		},
		{
			name:  "Level 3",
			level: 3,
			want:  399, // floor(3 * 100 * 1.331)
		},
		{
			name:  "Level below 1 clamps",
			level: 0,
			want:  110,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := XPNeededForLevel(tt.level); got != tt.want {
				t.Errorf("XPNeededForLevel(%d) = %d, want %d", tt.level, got, tt.want)
			}
		})
	}
}

func TestXPNeededForLevel_StrictlyIncreasing(t *testing.T) {
	for level := 1; level <= 100; level++ {
		if XPNeededForLevel(level+1) <= XPNeededForLevel(level) {
			t.Fatalf("threshold not strictly increasing at level %d: %d vs %d",
				level, XPNeededForLevel(level), XPNeededForLevel(level+1))
		}
	}
}

func TestApplyXP(t *testing.T) {
	tests := []struct {
		name        string
		level       int
		xp, totalXP int64
		gain        int64
		wantLevel   int
		wantXP      int64
		wantTotal   int64
	}{
		{
			name:      "No level-up",
			level:     1,
			xp:        0,
			gain:      50,
			wantLevel: 1,
			wantXP:    50,
			wantTotal: 50,
		},
		{
			name:      "Exact span rolls over",
			level:     1,
			xp:        0,
			gain:      132, // span(1) = 242 - 110
			wantLevel: 2,
			wantXP:    0,
			wantTotal: 132,
		},
		{
			name:      "Single level-up with remainder",
			level:     1,
			xp:        0,
			gain:      250,
			wantLevel: 2,
			wantXP:    118, // 250 - span(1)=132
			wantTotal: 250,
		},
		{
			name:      "Multi-level jump in one call",
			level:     1,
			xp:        0,
			gain:      1000,
			wantLevel: 6, // spans 132, 157, 186, 220, 257 consumed
			wantXP:    48,
			wantTotal: 1000,
		},
		{
			name:      "Gain on existing progress",
			level:     2,
			xp:        100,
			totalXP:   232,
			gain:      60,
			wantLevel: 3,
			wantXP:    3, // 160 - span(2)=157
			wantTotal: 292,
		},
		{
			name:      "Negative gain is a no-op",
			level:     3,
			xp:        10,
			totalXP:   500,
			gain:      -5,
			wantLevel: 3,
			wantXP:    10,
			wantTotal: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, xp, total := ApplyXP(tt.level, tt.xp, tt.totalXP, tt.gain)
			if level != tt.wantLevel || xp != tt.wantXP || total != tt.wantTotal {
				t.Errorf("ApplyXP() = (%d, %d, %d), want (%d, %d, %d)",
					level, xp, total, tt.wantLevel, tt.wantXP, tt.wantTotal)
			}
		})
	}
}

func TestApplyXP_InvariantXPBelowSpan(t *testing.T) {
	gains := []int64{1, 5, 10, 111, 132, 133, 999, 5000, 123456}
	for _, gain := range gains {
		level, xp, _ := ApplyXP(1, 0, 0, gain)
		if xp >= Span(level) {
			t.Errorf("gain %d: xp %d not below span %d at level %d", gain, xp, Span(level), level)
		}
	}
}

func TestApplyXP_DecompositionEquivalence(t *testing.T) {
	tests := []struct {
		name   string
		g1, g2 int64
	}{
		{name: "Small split", g1: 5, g2: 10},
		{name: "Crossing one boundary", g1: 100, g2: 50},
		{name: "Crossing several boundaries", g1: 700, g2: 300},
		{name: "Zero first half", g1: 0, g2: 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oneLevel, oneXP, oneTotal := ApplyXP(1, 0, 0, tt.g1+tt.g2)

			level, xp, total := ApplyXP(1, 0, 0, tt.g1)
			level, xp, total = ApplyXP(level, xp, total, tt.g2)

			if level != oneLevel || xp != oneXP || total != oneTotal {
				t.Errorf("split application = (%d, %d, %d), single application = (%d, %d, %d)",
					level, xp, total, oneLevel, oneXP, oneTotal)
			}
		})
	}
}

func TestApplyXPRemoval(t *testing.T) {
	tests := []struct {
		name        string
		level       int
		xp, totalXP int64
		loss        int64
		wantLevel   int
		wantXP      int64
		wantTotal   int64
	}{
		{
			name:      "Removal within level",
			level:     2,
			xp:        100,
			totalXP:   232,
			loss:      40,
			wantLevel: 2,
			wantXP:    60,
			wantTotal: 192,
		},
		{
			name:      "De-level once",
			level:     2,
			xp:        10,
			totalXP:   142,
			loss:      50,
			wantLevel: 1,
			wantXP:    92, // -40 + span(1)=132
			wantTotal: 92,
		},
		{
			name:      "Level floors at 1",
			level:     1,
			xp:        10,
			totalXP:   10,
			loss:      500,
			wantLevel: 1,
			wantXP:    0,
			wantTotal: 0,
		},
		{
			name:      "Total XP floors at 0",
			level:     3,
			xp:        5,
			totalXP:   3,
			loss:      10,
			wantLevel: 2,
			wantXP:    152, // -5 + span(2)=157
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, xp, total := ApplyXPRemoval(tt.level, tt.xp, tt.totalXP, tt.loss)
			if level != tt.wantLevel || xp != tt.wantXP || total != tt.wantTotal {
				t.Errorf("ApplyXPRemoval() = (%d, %d, %d), want (%d, %d, %d)",
					level, xp, total, tt.wantLevel, tt.wantXP, tt.wantTotal)
			}
		})
	}
}

func TestApplyXP_RemovalRestoresTotalXP(t *testing.T) {
	amounts := []int64{5, 132, 250, 1000, 54321}
	for _, amount := range amounts {
		level, xp, total := ApplyXP(1, 0, 0, amount)
		_, _, restored := ApplyXPRemoval(level, xp, total, amount)
		if restored != 0 {
			t.Errorf("amount %d: total XP after gain+removal = %d, want 0", amount, restored)
		}
	}
}
