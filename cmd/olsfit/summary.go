package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/obrafacil/regression"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	significantStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#10B981"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)
)

const vifWarningLimit = 10

func formatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%.4f", v)
}

// renderSummary renders the coefficient table and fit statistics of res.
func renderSummary(res *regression.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(res.FormulaString()))
	b.WriteString("\n\n")

	const row = "%-24s %12s %12s %9s %9s %25s %8s"
	ciHeader := fmt.Sprintf("%.0f%% CI", res.ConfidenceLevel*100)
	b.WriteString(headerStyle.Render(fmt.Sprintf(row, "", "coef", "std err", "t", "P>|t|", ciHeader, "VIF")))
	b.WriteString("\n")
	for _, label := range res.Labels {
		ci := res.ConfidenceIntervals[label]
		vif := ""
		if v, ok := res.VIF[label]; ok {
			vif = fmt.Sprintf("%.2f", v)
		}
		line := fmt.Sprintf(row,
			label,
			formatStat(res.Coefficients[label]),
			formatStat(res.StandardErrors[label]),
			fmt.Sprintf("%.3f", res.TStats[label]),
			fmt.Sprintf("%.3f", res.PValues[label]),
			fmt.Sprintf("[%s, %s]", formatStat(ci.Lower), formatStat(ci.Upper)),
			vif,
		)
		switch {
		case res.VIF[label] > vifWarningLimit:
			line = warningStyle.Render(line)
		case res.PValues[label] < 1-res.ConfidenceLevel:
			line = significantStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	stats := []struct {
		name  string
		value string
	}{
		{"Observations", fmt.Sprint(res.NumOfObservations)},
		{"R-squared", formatStat(res.RSquared)},
		{"Adj. R-squared", formatStat(res.RSquaredAdjusted)},
		{"F-statistic", formatStat(res.ANOVA.RegressionFstat)},
		{"Prob (F-statistic)", formatStat(res.ANOVA.RegressionProb)},
		{"MAE", formatStat(res.MAE)},
		{"RMSE", formatStat(res.RMSE)},
		{"Durbin-Watson", formatStat(res.Diagnostics().DurbinWatson)},
	}
	lines := make([]string, len(stats))
	for i, s := range stats {
		lines[i] = fmt.Sprintf("%s %s", mutedStyle.Render(fmt.Sprintf("%-20s", s.name)), s.value)
	}
	b.WriteString(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	if len(res.Elasticities) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headerStyle.Render("Elasticities"))
		for _, name := range res.FeatureNames {
			fmt.Fprintf(&b, "\n  %-22s %s", name, formatStat(res.Elasticities[name]))
		}
	}
	return b.String()
}

// renderPrediction renders the valuation of a single observation.
func renderPrediction(res *regression.Result, p *regression.Prediction) string {
	label := res.TargetLabel
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Predicted %s: %s", label, formatStat(p.Value))),
		fmt.Sprintf("%s [%s, %s]",
			mutedStyle.Render(fmt.Sprintf("%.0f%% CI", res.ConfidenceLevel*100)),
			formatStat(p.ValueInterval.Lower), formatStat(p.ValueInterval.Upper)),
	}
	if res.LogTarget {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("ln(%s) = %s ± %s", label, formatStat(p.Estimate), formatStat(p.StandardError))))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderSaved(kind, id string) string {
	return mutedStyle.Render(fmt.Sprintf("saved %s %s", kind, id))
}
