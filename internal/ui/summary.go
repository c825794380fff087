// Package ui renders the per-account console summary printed after each
// ping window.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/ping"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#59C2FF"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7680"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAD94C"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F07178"))
)

type column struct {
	name  string
	width int
	right bool
}

var summaryColumns = []column{
	{name: "ACCT", width: 4},
	{name: "NAME", width: 16},
	{name: "PROXY", width: 22},
	{name: "STATUS", width: 9},
	{name: "PINGS", width: 6, right: true},
	{name: "OK", width: 6, right: true},
	{name: "RATE", width: 6, right: true},
	{name: "SCORE", width: 6, right: true},
	{name: "LAST PING", width: 9},
	{name: "CLAIMED", width: 24},
}

// RenderSummary renders one row per account with its ping statistics and
// claimed rewards
func RenderSummary(cycle int, accts []*accounts.Account, report ping.WindowReport, now time.Time) string {
	var sb strings.Builder

	title := fmt.Sprintf("Cycle %d: %d rounds", cycle, len(report.Rounds))
	if !report.Start.IsZero() && !report.End.IsZero() {
		title += fmt.Sprintf(" in %s", report.End.Sub(report.Start).Round(time.Second))
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	cells := make([]string, len(summaryColumns))
	for i, col := range summaryColumns {
		cells[i] = headerStyle.Render(col.name)
	}
	writeRow(&sb, cells)

	total := 0
	for _, col := range summaryColumns {
		total += col.width + 1
	}
	sb.WriteString(dimStyle.Render(strings.Repeat("─", total-1)))
	sb.WriteString("\n")

	for _, acct := range accts {
		writeRow(&sb, accountCells(acct, now))
	}
	return sb.String()
}

func accountCells(acct *accounts.Account, now time.Time) []string {
	status := badStyle.Render(string(acct.Status))
	if acct.Status == accounts.StatusConnected {
		status = goodStyle.Render(string(acct.Status))
	}

	var pings, ok, rate, score, last string
	if st := acct.PingStats; st != nil {
		pings = fmt.Sprintf("%d", st.PingCount)
		ok = fmt.Sprintf("%d", st.SuccessfulPings)
		rate = fmt.Sprintf("%.0f%%", st.SuccessRate())
		score = fmt.Sprintf("%d", st.Score)
		if !st.LastPingTime.IsZero() {
			last = now.Sub(st.LastPingTime).Round(time.Second).String() + " ago"
		}
	}

	claimed := strings.Join(acct.ClaimedList(), ",")
	if claimed == "" {
		claimed = dimStyle.Render("-")
	}

	return []string{
		fmt.Sprintf("%02d", acct.Index),
		acct.Profile.Name,
		acct.ProxyLabel(),
		status,
		pings,
		ok,
		rate,
		score,
		last,
		claimed,
	}
}

func writeRow(sb *strings.Builder, cells []string) {
	for i, col := range summaryColumns {
		val := ""
		if i < len(cells) {
			val = cells[i]
		}
		sb.WriteString(pad(truncate(val, col.width), col.width, col.right))
		if i < len(summaryColumns)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("\n")
}

// truncate shortens plain text to width display cells. Styled text is
// left alone.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width || strings.Contains(s, "\x1b") {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// pad pads to width display cells, which differs from byte length for
// styled and wide text
func pad(s string, width int, right bool) string {
	n := width - lipgloss.Width(s)
	if n <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}
