package take

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/finwell/internal/ui/report"
	"github.com/abhisek/finwell/internal/ui/theme"
)

// View renders the screen.
func (s *TakeScreen) View() tea.View {
	v := tea.NewView(s.render())
	v.AltScreen = true
	return v
}

func (s *TakeScreen) render() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Financial wellness survey"))
	b.WriteString("\n\n")

	switch s.phase {
	case phaseLoading:
		b.WriteString(theme.Subtitle.Render("Loading your survey..."))
	case phaseAsking:
		s.renderQuestion(&b)
	case phaseReview:
		s.renderReview(&b)
	case phaseSubmitting:
		b.WriteString(theme.Subtitle.Render("Scoring your answers..."))
	case phaseDone:
		if s.record != nil {
			b.WriteString(report.Score(*s.record, false))
		}
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("Press q to exit."))
	}

	if s.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.Failed.Render(s.errMsg))
		if s.retryable {
			b.WriteString("\n")
			b.WriteString(theme.Hint.Render("Press enter to try again."))
		}
	}

	if s.showingQuitConfirm {
		b.WriteString("\n\n")
		b.WriteString(theme.Card.Render("Leave the survey? Your answers are saved. (y/n)"))
	}
	return b.String()
}

func (s *TakeScreen) renderQuestion(b *strings.Builder) {
	total := len(s.questions)
	q := s.questions[s.index]

	header := fmt.Sprintf("Question %d of %d", s.index+1, total)
	if s.resumed {
		header += "  (resumed)"
	}
	b.WriteString(theme.Subtitle.Render(header))
	b.WriteString("\n")
	b.WriteString(report.ProgressBar(float64(s.answered())/float64(total), s.barWidth()))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Render(report.PillarLabel(q.Pillar)))
	b.WriteString("\n")
	b.WriteString(s.choice.View())
	b.WriteString("\n")
	b.WriteString(theme.Hint.Render(hints(s.keys.Pick, s.keys.Up, s.keys.Down, s.keys.Choose, s.keys.Back, s.keys.Quit)))
}

func (s *TakeScreen) renderReview(b *strings.Builder) {
	b.WriteString(theme.Ok.Render(fmt.Sprintf("All %d questions answered.", len(s.questions))))
	b.WriteString("\n")
	b.WriteString(report.ProgressBar(1, s.barWidth()))
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render(hints(s.keys.Submit, s.keys.Back, s.keys.Quit)))
}

func (s *TakeScreen) barWidth() int {
	if s.width <= 0 {
		return 30
	}
	return min(max(s.width-4, 10), 60)
}
