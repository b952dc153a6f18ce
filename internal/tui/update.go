// Copyright 2025 James Ross
package tui

import (
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/trafficflow/trafficflow/internal/monitor"
)

// Init starts the spinner and the first refresh/tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchRecordsCmd(m.ctx, m, m.activeTab), tickCmd(m.refreshEvery))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.tbl.SetWidth(m.width)
		m.tbl.SetHeight(m.height - 8)
		m.reportView.Width = m.width
		m.reportView.Height = m.height - 6
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchRecordsCmd(m.ctx, m, m.activeTab), tickCmd(m.refreshEvery))

	case recordsMsg:
		if msg.tab != m.activeTab {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.records = msg.records
		m.allRecords = msg.records
		m.allRows = rowsFor(msg.records)
		m.applyFilter()
		return m, nil

	case adjustmentPublishedMsg:
		if msg.err != nil {
			m.adjustStatus = "publish failed: " + msg.err.Error()
		} else {
			m.adjustStatus = "published add_seconds_green=" + strconv.Itoa(int(msg.addSeconds)) + " for " + msg.intersectionID
		}
		return m, nil

	case reportMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.lastReport = msg.report
		m.reportView.SetContent(msg.report.Body)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeFilter:
		switch msg.String() {
		case "esc":
			m.mode = modeBrowse
			m.filter.SetValue("")
			m.filterActive = false
			m.applyFilter()
			return m, nil
		case "enter":
			m.mode = modeBrowse
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd

	case modeAdjustForm:
		switch msg.String() {
		case "esc":
			m.mode = modeBrowse
			return m, nil
		case "tab":
			m.adjustFocus = 1 - m.adjustFocus
			return m, nil
		case "enter":
			seconds, err := strconv.Atoi(strings.TrimSpace(m.adjustSeconds.Value()))
			if err != nil || seconds < 0 {
				m.adjustStatus = "seconds must be a non-negative integer"
				return m, nil
			}
			id := strings.TrimSpace(m.adjustIntersection.Value())
			return m, publishAdjustmentCmd(m.ctx, m, id, uint32(seconds))
		}
		var cmd tea.Cmd
		if m.adjustFocus == 0 {
			m.adjustIntersection, cmd = m.adjustIntersection.Update(msg)
		} else {
			m.adjustSeconds, cmd = m.adjustSeconds.Update(msg)
		}
		return m, cmd

	case modeReport:
		if msg.String() == "esc" || msg.String() == "q" {
			m.mode = modeBrowse
			return m, nil
		}
		var cmd tea.Cmd
		m.reportView, cmd = m.reportView.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "tab":
		m.activeTab = (m.activeTab + 1) % tabCount
		m.loading = true
		return m, fetchRecordsCmd(m.ctx, m, m.activeTab)
	case "shift+tab":
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		m.loading = true
		return m, fetchRecordsCmd(m.ctx, m, m.activeTab)
	case "/", "f":
		m.mode = modeFilter
		m.filterActive = true
		return m, nil
	case "a":
		m.mode = modeAdjustForm
		m.adjustFocus = 0
		m.adjustStatus = ""
		return m, nil
	case "r":
		m.mode = modeReport
		return m, generateReportCmd(m.ctx, m)
	}

	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

func rowsFor(records []monitor.Record) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, table.Row{r.ID, r.ReceivedAt.Format("15:04:05"), string(r.Payload)})
	}
	return rows
}

// applyFilter fuzzy-matches the filter text against each row's payload
// column using sort.Sort(ranks) over fuzzy.RankFindNormalizedFold.
func (m *Model) applyFilter() {
	q := strings.TrimSpace(m.filter.Value())
	if q == "" {
		m.tbl.SetRows(m.allRows)
		return
	}
	labels := make([]string, len(m.allRows))
	for i, row := range m.allRows {
		labels[i] = row[2]
	}
	ranks := fuzzy.RankFindNormalizedFold(q, labels)
	sort.Sort(ranks)
	rows := make([]table.Row, 0, len(ranks))
	for _, rk := range ranks {
		rows = append(rows, m.allRows[rk.OriginalIndex])
	}
	m.tbl.SetRows(rows)
}
