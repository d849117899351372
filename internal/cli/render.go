package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/savings-plan/internal/aggregate"
	"github.com/Veraticus/savings-plan/internal/alert"
	"github.com/Veraticus/savings-plan/internal/classify"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/config"
	"github.com/Veraticus/savings-plan/internal/consistency"
	"github.com/Veraticus/savings-plan/internal/engine"
	"github.com/Veraticus/savings-plan/internal/ledger"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
)

// FormatError renders err for the terminal, preferring the user-facing message of a
// common.UserError.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return FormatFailure(userErr.UserMessage)
	}
	return FormatFailure(err.Error())
}

// Amount renders a signed amount, red when negative.
func Amount(d decimal.Decimal) string {
	s := money.Format(d)
	if d.IsNegative() {
		return ErrorStyle.Render(s)
	}
	return s
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

// table lays out rows under headers. Columns listed in right are right-aligned.
func table(headers []string, rows [][]string, right ...int) string {
	alignRight := make(map[int]bool, len(right))
	for _, c := range right {
		alignRight[c] = true
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	cell := func(i int, s string) string {
		style := TableCellStyle.Width(widths[i] + 2)
		if alignRight[i] {
			style = style.Align(lipgloss.Right)
		}
		return style.Render(s)
	}

	var b strings.Builder
	header := make([]string, len(headers))
	for i, h := range headers {
		header[i] = cell(i, h)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, header...)))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = cell(i, c)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary renders the resource summary of a period.
func RenderSummary(s ledger.ResourceSummary) string {
	rows := [][]string{
		{"Opening balance", Amount(s.Opening)},
		{"Income", Amount(s.Income)},
		{"Recurring operations", Amount(s.RecurringNet)},
		{"Expenses", Amount(s.Expenses)},
		{"Cash movements", Amount(s.CashMovements)},
		{"Financial charges", Amount(s.SettledCharges)},
		{"Closing balance", BoldStyle.Render(Amount(s.Closing))},
	}
	content := table([]string{"", ""}, rows, 1)
	if !s.PendingDue.IsZero() {
		content += "\n" + WarningStyle.Render("Pending due: "+money.Format(s.PendingDue))
	}
	if s.Unclamped.IsNegative() {
		content += "\n" + FormatWarning("Spending exceeds resources by "+money.Format(s.Unclamped.Abs()))
	}
	return RenderBox(ChartIcon+" "+s.Period.Label(), content)
}

// RenderDetail renders per-section consumption with cap usage.
func RenderDetail(d ledger.TierDetail) string {
	rows := make([][]string, 0, len(d.Sections))
	for _, sd := range d.Sections {
		capCell, usedCell := "-", "-"
		if sd.Alert.Capped() {
			capCell = money.Format(sd.Alert.Cap.Decimal)
			usedCell = LevelStyle(sd.Alert.Level).Render(percent(sd.Alert.PercentUsed))
		}
		rows = append(rows, []string{
			string(sd.Section),
			fmt.Sprint(sd.Count),
			Amount(sd.Debit),
			Amount(sd.Credit),
			Amount(sd.Total),
			capCell,
			usedCell,
			LevelPill(sd.Alert.Level),
		})
	}
	return FormatTitle("Consumption "+d.Period.Label()) + "\n" +
		table([]string{"Section", "Count", "Debit", "Credit", "Total", "Cap", "Used", "Status"}, rows, 1, 2, 3, 4, 5, 6)
}

// RenderBreakdown renders expense groups with their share of the whole.
func RenderBreakdown(p model.Period, groups []aggregate.Group) string {
	if len(groups) == 0 {
		return FormatInfo("No expenses in " + p.Label())
	}
	return RenderGroups("Expenses by subcategory "+p.Label(), "Subcategory", groups)
}

// RenderGroups renders any grouping under title, with label heading the key column.
func RenderGroups(title, label string, groups []aggregate.Group) string {
	if len(groups) == 0 {
		return FormatInfo("Nothing to group")
	}
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Key, fmt.Sprint(g.Count), money.Format(g.Total), percent(g.Percentage)})
	}
	return FormatTitle(title) + "\n" +
		table([]string{label, "Count", "Total", "Share"}, rows, 1, 2, 3)
}

// RenderAlerts renders the sections past their warning line.
func RenderAlerts(p model.Period, alerts []engine.SectionAlert) string {
	if len(alerts) == 0 {
		return FormatSuccess("Every section of " + p.Label() + " is within its cap")
	}
	lines := make([]string, 0, len(alerts)+1)
	lines = append(lines, FormatTitle("Alerts "+p.Label()))
	for _, a := range alerts {
		icon := WarningIcon
		if a.Level == alert.LevelDanger {
			icon = DangerIcon
		}
		lines = append(lines, LevelStyle(a.Level).Render(icon+" "+a.Message))
	}
	return strings.Join(lines, "\n")
}

// RenderValidation renders a consistency report.
func RenderValidation(r consistency.Report) string {
	var b strings.Builder
	if r.Valid {
		b.WriteString(FormatSuccess(fmt.Sprintf("%d periods checked, balances chain correctly", r.Checked)))
	} else {
		b.WriteString(FormatFailure(fmt.Sprintf("%d periods checked, %d inconsistencies", r.Checked, len(r.Errors))))
		rows := make([][]string, 0, len(r.Errors))
		for _, e := range r.Errors {
			rows = append(rows, []string{
				e.PreviousLabel + " → " + e.PeriodLabel,
				money.Format(e.Expected),
				money.Format(e.Actual),
				Amount(e.Difference),
			})
		}
		b.WriteString("\n")
		b.WriteString(table([]string{"Periods", "Expected", "Actual", "Difference"}, rows, 1, 2, 3))
	}
	for _, w := range r.Warnings {
		b.WriteString("\n")
		b.WriteString(FormatWarning(fmt.Sprintf("%s [%s] %s", w.PeriodLabel, w.Kind, w.Message)))
	}
	return b.String()
}

// RenderReport renders the multi-period report: balances, savings and the audit.
func RenderReport(r engine.Report) string {
	rows := make([][]string, 0, len(r.Summaries))
	for i, s := range r.Summaries {
		saved, status := "-", "-"
		if i < len(r.Savings) {
			sp := r.Savings[i]
			saved = Amount(sp.Saved)
			status = savingsStyle(sp.Status).Render(string(sp.Status))
		}
		rows = append(rows, []string{
			s.Period.String(),
			money.Format(s.Opening),
			money.Format(s.Closing),
			money.Format(s.PendingDue),
			saved,
			status,
		})
	}

	var b strings.Builder
	b.WriteString(FormatTitle("Report"))
	b.WriteString("\n")
	b.WriteString(table([]string{"Period", "Opening", "Closing", "Pending", "Saved", "Goal"}, rows, 1, 2, 3, 4))
	b.WriteString("\n")
	b.WriteString(RenderValidation(r.Consistency))
	return b.String()
}

func savingsStyle(s ledger.SavingsStatus) lipgloss.Style {
	switch s {
	case ledger.SavingsMet:
		return SuccessStyle
	case ledger.SavingsNear:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// RenderTransactions renders a transaction list.
func RenderTransactions(txns []model.Transaction) string {
	if len(txns) == 0 {
		return FormatInfo("No matching transactions")
	}
	rows := make([][]string, 0, len(txns))
	for i := range txns {
		t := &txns[i]
		flags := []string{}
		if t.Settlement == model.SettlementPending {
			flags = append(flags, "pending")
		}
		if t.Overdue {
			flags = append(flags, "overdue:"+t.OriginPeriod)
		}
		if t.Linked {
			flags = append(flags, "linked:"+t.ScheduleID)
		}
		category := string(t.Category)
		if !t.UserCategory.IsUnset() {
			category += "/" + string(t.UserCategory)
		}
		rows = append(rows, []string{
			t.EffectiveDate().Format("2006-01-02"),
			t.ID,
			t.Description,
			category,
			string(t.Tier),
			string(t.Instrument),
			Amount(t.Amount),
			SubtleStyle.Render(strings.Join(flags, " ")),
		})
	}
	return table([]string{"Date", "ID", "Description", "Category", "Tier", "Paid", "Amount", ""}, rows, 6)
}

// RenderConfiguration renders the budget configuration, its resolved thresholds and any
// warnings.
func RenderConfiguration(cfg model.Configuration, th classify.Thresholds, warnings []config.Warning) string {
	threshold := func(s model.ThresholdSetting, resolved decimal.Decimal) string {
		if s.Automatic {
			return money.Format(resolved) + SubtleStyle.Render(" (automatic)")
		}
		return money.Format(resolved)
	}

	rows := [][]string{
		{"Monthly income", money.Format(cfg.MonthlyIncome)},
		{"Savings goal", money.Format(cfg.SavingsGoal)},
		{"Trivial up to", threshold(cfg.Thresholds.Trivial, th.Trivial)},
		{"Moderate up to", threshold(cfg.Thresholds.Moderate, th.Moderate)},
	}
	for _, s := range model.Sections {
		c := cfg.Cap(s)
		switch {
		case c.Amount.Valid:
			rows = append(rows, []string{"Cap " + string(s), money.Format(c.Amount.Decimal)})
		case c.Percentage.Valid:
			rows = append(rows, []string{"Cap " + string(s), percent(c.Percentage.Decimal) + " of income"})
		}
	}
	if !cfg.ValidFrom.IsZero() {
		scope := "from this date"
		if cfg.AppliesToPriorPeriods {
			scope = "retroactive"
		}
		rows = append(rows, []string{"Valid from", cfg.ValidFrom.Format("2006-01-02") + " (" + scope + ")"})
	}

	content := table([]string{"", ""}, rows, 1)
	for _, w := range warnings {
		content += "\n" + FormatWarning(w.String())
	}
	return RenderBox("Budget configuration", content)
}

// RenderSchedules renders recurring schedules.
func RenderSchedules(schedules []model.Schedule) string {
	if len(schedules) == 0 {
		return FormatInfo("No recurring schedules")
	}
	rows := make([][]string, 0, len(schedules))
	for i := range schedules {
		s := &schedules[i]
		day := fmt.Sprint(s.DayOfMonth)
		if s.DayOfMonth == 0 {
			day = "last"
		}
		window := "since " + s.StartPeriod.String()
		if s.StartPeriod.IsZero() {
			window = "always"
		}
		if !s.EndPeriod.IsZero() {
			window += " until " + s.EndPeriod.String()
		}
		state := SuccessStyle.Render("active")
		if !s.Active {
			state = SubtleStyle.Render("paused")
		}
		rows = append(rows, []string{s.ID, s.Description, Amount(s.Amount), day, window, state})
	}
	return table([]string{"ID", "Description", "Amount", "Day", "Window", "State"}, rows, 2)
}

// RenderReclassify renders the outcome of a reclassification.
func RenderReclassify(res engine.ReclassifyResult) string {
	msg := FormatInfo(res.Transaction.ID + " already classified that way")
	if res.Changed {
		msg = FormatSuccess(fmt.Sprintf("%s is now %s", res.Transaction.ID, describe(&res.Transaction)))
	}
	return msg + "\n" + RenderSummary(res.Summary)
}

func describe(t *model.Transaction) string {
	s := string(t.Category)
	if !t.UserCategory.IsUnset() {
		s += " (" + string(t.UserCategory) + ")"
	}
	if t.Linked {
		s += ", linked to " + t.ScheduleID
	}
	return s
}
