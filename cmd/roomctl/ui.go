package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	Primary = lipgloss.Color("#22d3ee")
	Success = lipgloss.Color("#10B981")
	Error   = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	OnStyle = lipgloss.NewStyle().
		Foreground(Success)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				Align(lipgloss.Center)

	tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

	TableRowStyle = tableCellStyle.Foreground(lipgloss.Color("255"))

	TableRowAltStyle = tableCellStyle.Foreground(lipgloss.Color("245"))
)

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})
}

func keyValueView(rows [][]string) string {
	return newTable([]string{"Field", "Value"}, rows).Render()
}

func onOff(on bool) string {
	if on {
		return OnStyle.Render("on")
	}
	return MutedStyle.Render("off")
}

func (s *roomSnapshot) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Room %s", s.Code)))
	b.WriteString("\n")

	if len(s.Members) == 0 {
		b.WriteString(MutedStyle.Render("No members; the room is closed or has expired"))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(s.Members))
		for i, m := range s.Members {
			role := "member"
			if i == 0 {
				role = "owner"
			}
			if m.Entry == nil {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), string(m.UserID), role, MutedStyle.Render("expired"), "", "", ""})
				continue
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1),
				string(m.UserID),
				role,
				m.Entry.Name,
				onOff(m.Entry.MicOn),
				onOff(m.Entry.CameraOn),
				onOff(m.Entry.HandRaised),
			})
		}
		b.WriteString(newTable([]string{"#", "User", "Role", "Name", "Mic", "Camera", "Hand"}, rows).Render())
		b.WriteString("\n")
	}

	if len(s.Waiting) == 0 {
		b.WriteString(MutedStyle.Render("Nobody is waiting"))
		return b.String()
	}
	rows := make([][]string, 0, len(s.Waiting))
	for i, w := range s.Waiting {
		name := MutedStyle.Render("expired")
		if w.Entry != nil {
			name = w.Entry.Name
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), string(w.UserID), name})
	}
	b.WriteString(TitleStyle.Render("Waiting"))
	b.WriteString("\n")
	b.WriteString(newTable([]string{"#", "User", "Name"}, rows).Render())
	return b.String()
}
