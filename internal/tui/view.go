// Copyright 2025 James Ross
package tui

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	switch m.mode {
	case modeAdjustForm:
		return m.viewAdjustForm()
	case modeReport:
		return m.viewReport()
	default:
		return m.viewBrowse()
	}
}

func (m Model) viewBrowse() string {
	var b strings.Builder

	for t := tab(0); t < tabCount; t++ {
		style := tabInactiveStyle
		if t == m.activeTab {
			style = tabActiveStyle
		}
		b.WriteString(style.Render(t.title()))
	}
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(m.spinner.View() + " refreshing...\n")
	}
	if m.errText != "" {
		b.WriteString(errStyle.Render("error: "+m.errText) + "\n")
	}
	if m.filterActive || strings.TrimSpace(m.filter.Value()) != "" {
		b.WriteString("filter: " + m.filter.View() + "\n")
	}

	b.WriteString(m.tbl.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf(" %d records ", len(m.records))))
	b.WriteString("\n")
	b.WriteString(helpHintStyle.Render("tab/shift+tab: switch queue  f or /: filter  a: adjust  r: report  q: quit"))
	return b.String()
}

func (m Model) viewAdjustForm() string {
	var b strings.Builder
	b.WriteString("Manually adjust a traffic light phase\n\n")
	b.WriteString("Intersection: " + m.adjustIntersection.View() + "\n")
	b.WriteString("Seconds to add: " + m.adjustSeconds.View() + "\n\n")
	if m.adjustStatus != "" {
		b.WriteString(m.adjustStatus + "\n\n")
	}
	b.WriteString(helpHintStyle.Render("tab: switch field  enter: publish  esc: cancel"))
	return formBoxStyle.Render(b.String())
}

func (m Model) viewReport() string {
	var b strings.Builder
	if !m.lastReport.GeneratedAt.IsZero() {
		b.WriteString(m.reportView.View())
	} else {
		b.WriteString(m.spinner.View() + " generating report...")
	}
	b.WriteString("\n\n")
	b.WriteString(helpHintStyle.Render("esc or q: back"))
	return b.String()
}
