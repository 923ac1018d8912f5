// Package report renders scores, history and statistics for the terminal.
package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/survey"
	"github.com/abhisek/finwell/internal/ui/theme"
)

const barWidth = 24

// ProgressBar renders a bar filled to percent (0..1).
func ProgressBar(percent float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(float64(width) * percent)
	filled = min(max(filled, 0), width)

	return theme.ProgressFilled.Render(strings.Repeat("█", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat("░", width-filled))
}

// PillarLabel turns a pillar key into a display label.
func PillarLabel(p scoring.Pillar) string {
	words := strings.Split(string(p), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Score renders a full result: total, per-pillar bars and advice.
func Score(rec survey.ScoreRecord, local bool) string {
	var b strings.Builder

	header := fmt.Sprintf("Financial wellness score: %d / %d", rec.TotalScore, rec.MaxPossibleScore)
	b.WriteString(theme.Title.Render(header))
	b.WriteString("  ")
	b.WriteString(theme.Band(rec.Interpretation).Render(rec.Interpretation.Label()))
	b.WriteString("\n")
	if local {
		b.WriteString(theme.Hint.Render("Scored on this device; the scoring service was unreachable."))
		b.WriteString("\n")
	}
	if rec.Approximate {
		b.WriteString(theme.Hint.Render("Pillar scores are estimated from the overall score."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, ps := range rec.PillarScores {
		b.WriteString(theme.Label.Render(PillarLabel(ps.Pillar)))
		b.WriteString(ProgressBar(ps.Percentage/100, barWidth))
		b.WriteString(fmt.Sprintf(" %4.2f  ", ps.Score))
		b.WriteString(theme.Band(ps.Band).Render(ps.Band.Label()))
		b.WriteString("\n")
	}

	if len(rec.Advice) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Subtitle.Render("What to work on"))
		b.WriteString("\n")
		for _, a := range rec.Advice {
			b.WriteString("  • ")
			b.WriteString(a)
			b.WriteString("\n")
		}
	}
	return theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

// History renders one line per record, in the order given.
func History(records []survey.ScoreRecord) string {
	if len(records) == 0 {
		return theme.Hint.Render("No assessments yet.")
	}

	var b strings.Builder
	for _, r := range records {
		marker := ""
		if r.Approximate {
			marker = theme.Hint.Render(" (estimated pillars)")
		}
		line := fmt.Sprintf("%s  %3d / %d  ", r.CreatedAt.Local().Format("2006-01-02 15:04"), r.TotalScore, r.MaxPossibleScore)
		b.WriteString(line)
		b.WriteString(theme.Band(r.Interpretation).Render(r.Interpretation.Label()))
		b.WriteString(marker)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Summary aggregates a history for the stats view.
type Summary struct {
	Count         int
	AveragePct    float64
	Best          *survey.ScoreRecord
	Latest        *survey.ScoreRecord
	ChangePct     float64
	HasChange     bool
	WeakestPillar scoring.Pillar
}

// Summarize computes a Summary from records sorted newest first.
func Summarize(records []survey.ScoreRecord) Summary {
	s := Summary{Count: len(records)}
	if len(records) == 0 {
		return s
	}

	var total float64
	pillarSum := map[scoring.Pillar]float64{}
	pillarN := map[scoring.Pillar]int{}
	for i := range records {
		r := &records[i]
		pct := percent(r)
		total += pct
		if s.Best == nil || pct > percent(s.Best) {
			s.Best = r
		}
		for _, ps := range r.PillarScores {
			pillarSum[ps.Pillar] += ps.Score
			pillarN[ps.Pillar]++
		}
	}
	s.AveragePct = total / float64(len(records))
	s.Latest = &records[0]
	if len(records) > 1 {
		s.ChangePct = percent(&records[0]) - percent(&records[1])
		s.HasChange = true
	}

	lowest := 0.0
	for _, p := range scoring.Pillars {
		if pillarN[p] == 0 {
			continue
		}
		mean := pillarSum[p] / float64(pillarN[p])
		if s.WeakestPillar == "" || mean < lowest {
			s.WeakestPillar, lowest = p, mean
		}
	}
	return s
}

func percent(r *survey.ScoreRecord) float64 {
	if r.MaxPossibleScore <= 0 {
		return 0
	}
	return float64(r.TotalScore) * 100 / float64(r.MaxPossibleScore)
}

// Stats renders a Summary.
func Stats(s Summary) string {
	if s.Count == 0 {
		return theme.Hint.Render("No assessments yet.")
	}

	rows := []string{
		theme.Title.Render("Assessment statistics"),
		fmt.Sprintf("%s%d", theme.Label.Render("Assessments"), s.Count),
		fmt.Sprintf("%s%.1f%%", theme.Label.Render("Average score"), s.AveragePct),
		fmt.Sprintf("%s%d / %d", theme.Label.Render("Best score"), s.Best.TotalScore, s.Best.MaxPossibleScore),
		theme.Label.Render("Latest band") + theme.Band(s.Latest.Interpretation).Render(s.Latest.Interpretation.Label()),
	}
	if s.HasChange {
		style := theme.Ok
		if s.ChangePct < 0 {
			style = theme.Failed
		}
		rows = append(rows, theme.Label.Render("Since previous")+style.Render(fmt.Sprintf("%+.1f%%", s.ChangePct)))
	}
	if s.WeakestPillar != "" {
		rows = append(rows, theme.Label.Render("Weakest pillar")+PillarLabel(s.WeakestPillar))
	}
	return theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
