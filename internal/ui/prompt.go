package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// PromptTheme returns the shardsql theme for prompts
func PromptTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	t.Focused.Description = lipgloss.NewStyle().
		Foreground(ColorMuted)

	t.Focused.SelectSelector = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		SetString("> ")

	t.Focused.SelectedOption = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	t.Focused.UnselectedOption = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888"))

	return t
}

// Select prompts for selection from options
func Select(title string, options []string) (string, error) {
	var result string

	opts := make([]huh.Option[string], len(options))
	for i, opt := range options {
		opts[i] = huh.NewOption(opt, opt)
	}

	err := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&result).
		WithTheme(PromptTheme()).
		Run()

	return result, err
}

// StatementDetails is what the statement form collects.
type StatementDetails struct {
	Dialect string
	SQL     string
}

// ValidateSQL rejects blank input.
func ValidateSQL(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("a SQL statement is required")
	}
	return nil
}

// StatementForm prompts for a DDL statement. The dialect select is only
// shown when more than one dialect is offered.
func StatementForm(dialects []string, defaultDialect string) (*StatementDetails, error) {
	details := &StatementDetails{Dialect: defaultDialect}

	fields := []huh.Field{
		huh.NewText().
			Title("SQL").
			Description("One DDL statement; only the first is analyzed").
			Placeholder("CREATE TABLE t_order (order_id INT PRIMARY KEY)").
			Value(&details.SQL).
			Validate(ValidateSQL),
	}
	if len(dialects) > 1 {
		opts := make([]huh.Option[string], len(dialects))
		for i, d := range dialects {
			opts[i] = huh.NewOption(d, d)
		}
		fields = append([]huh.Field{
			huh.NewSelect[string]().
				Title("Dialect").
				Options(opts...).
				Value(&details.Dialect),
		}, fields...)
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(PromptTheme()).Run(); err != nil {
		return nil, err
	}
	details.SQL = strings.TrimSpace(details.SQL)
	return details, nil
}
