package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

var fieldLabels = [fieldCount]string{"Date", "Item Name", "Item Size", "Quantity"}

func (a App) View() string {
	if a.loading {
		return "\n  Loading...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Inventory Management"))
	b.WriteString("\n\n")

	if a.errMsg != "" {
		b.WriteString(errStyle.Render("Error: " + a.errMsg))
		b.WriteString("\n\n")
	}

	for i := range a.inputs {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-10s", fieldLabels[i])))
		b.WriteString(a.inputs[i].View())
		b.WriteString("\n")
	}

	if a.submitting {
		b.WriteString("\n  Adding...\n\n")
	} else {
		b.WriteString("\n  [enter] add item   [tab] next field   [esc] quit\n\n")
	}

	b.WriteString(a.renderItems())

	if a.session.UserID != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  Your User ID: " + a.session.UserID))
		b.WriteString("\n")
	}
	return b.String()
}

func (a App) renderItems() string {
	if len(a.items) == 0 {
		return "  No items in inventory. Add some above!\n"
	}

	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(headStyle.Render(fmt.Sprintf("%-12s %-20s %-14s %8s  %s",
		"Date", "Item", "Size", "Quantity", "Added By")))
	b.WriteString("\n")

	for _, it := range a.items {
		b.WriteString(fmt.Sprintf("  %-12s %-20s %-14s %8d  %s\n",
			it.Date, truncate(it.Item, 20), truncate(it.ItemSize, 14),
			it.Quantity, truncate(it.AddedBy, 24)))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
