package fetch

import "testing"

func TestExtractEndDate(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "ddmmyyyy on expiry line",
			lines: []string{"#EXTM3U", "# expires 31122026"},
			want:  "31122026",
		},
		{
			name:  "iso date normalized",
			lines: []string{"# valid until 2026-12-31"},
			want:  "31122026",
		},
		{
			name:  "dotted iso date",
			lines: []string{"# end 2027.01.15"},
			want:  "15012027",
		},
		{
			name:  "date on non-hint line is ignored",
			lines: []string{"# channel list 31122026"},
			want:  "",
		},
		{
			name:  "first matching line wins",
			lines: []string{"# exp 01012026", "# exp 02022027"},
			want:  "01012026",
		},
		{
			name:  "hint without a date",
			lines: []string{"# expires soon"},
			want:  "",
		},
		{
			name:  "empty input",
			lines: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractEndDate(tt.lines); got != tt.want {
				t.Errorf("ExtractEndDate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractEndDateCandidateCap(t *testing.T) {
	lines := make([]string, 0, maxExpiryCandidates+2)
	for i := 0; i < maxExpiryCandidates+1; i++ {
		lines = append(lines, "# expires later")
	}
	lines = append(lines, "# expires 31122026")

	if got := ExtractEndDate(lines); got != "" {
		t.Errorf("ExtractEndDate = %q, want scan abandoned after cap", got)
	}
}
