package handlers

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/dpuprov/internal/orchestration"
)

var (
	summaryColorGreen = lipgloss.Color("#22c55e")
	summaryColorRed   = lipgloss.Color("#ef4444")
	summaryColorBlue  = lipgloss.Color("#3b82f6")
	summaryColorDim   = lipgloss.Color("#6b7280")
)

var (
	summaryHeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(summaryColorBlue).Padding(0, 1)
	summaryCellStyle    = lipgloss.NewStyle().Padding(0, 1)
	summaryDoneStyle    = summaryCellStyle.Foreground(summaryColorGreen)
	summaryFailedStyle  = summaryCellStyle.Foreground(summaryColorRed)
	summaryPendingStyle = summaryCellStyle.Foreground(summaryColorDim)
)

const summaryErrorWidth = 60

// renderSummary renders one row per node. Colors are applied only when
// styled is set.
func renderSummary(nodes []orchestration.NodeStatus, styled bool) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NODE", "PHASE", "STAGE", "UPDATED", "ERROR")

	for _, n := range nodes {
		t.Row(n.Node, n.Phase, string(n.Stage), n.Updated.Format(time.TimeOnly), shortError(n.Err))
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if !styled {
			return summaryCellStyle
		}
		if row == table.HeaderRow {
			return summaryHeaderStyle
		}
		if col != 2 || row < 0 || row >= len(nodes) {
			return summaryCellStyle
		}
		switch nodes[row].Stage {
		case orchestration.StageFailed:
			return summaryFailedStyle
		case orchestration.StagePending:
			return summaryPendingStyle
		default:
			return summaryDoneStyle
		}
	})

	return "\n" + t.String() + "\n"
}

// shortError returns the first line of err, truncated.
func shortError(err error) string {
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	if len(msg) > summaryErrorWidth {
		msg = msg[:summaryErrorWidth-3] + "..."
	}
	return msg
}
