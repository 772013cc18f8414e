package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/utils"
)

func validateClock(s string) error {
	if !utils.ValidateTimeFormat(s) {
		return fmt.Errorf("expected HH:MM")
	}
	return nil
}

// runRoutineForm prompts for the routine fields, pre-filled with any values
// given as flags
func runRoutineForm(title *string, f *RoutineFlags) error {
	if f.Frequency == "" {
		f.Frequency = string(constants.FrequencyDaily)
	}
	monthly := ""
	if f.MonthlyDate != 0 {
		monthly = strconv.Itoa(f.MonthlyDate)
	}
	category := ""
	if f.Category != nil {
		category = *f.Category
	}
	tags := strings.Join(f.Tag, ",")

	freqOptions := make([]huh.Option[string], len(constants.Frequencies))
	for i, freq := range constants.Frequencies {
		freqOptions[i] = huh.NewOption(string(freq), string(freq))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Start (HH:MM)").
				Value(&f.Start).
				Validate(validateClock),
			huh.NewInput().
				Title("End (HH:MM)").
				Value(&f.End).
				Validate(validateClock),
			huh.NewSelect[string]().
				Title("Frequency").
				Options(freqOptions...).
				Value(&f.Frequency),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Days of week").
				Description("For weekly and biweekly routines, e.g. mon,wed,fri").
				Value(&f.Days).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					_, err := ParseWeekdays(s)
					return err
				}),
			huh.NewInput().
				Title("Day of month").
				Description("For monthly routines (1-31)").
				Value(&monthly).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 31 {
						return fmt.Errorf("must be a number between 1 and 31")
					}
					return nil
				}),
			huh.NewInput().
				Title("Category").
				Value(&category),
			huh.NewInput().
				Title("Tags").
				Description("Comma-separated").
				Value(&tags),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return err
	}

	f.MonthlyDate = 0
	if monthly != "" {
		f.MonthlyDate, _ = strconv.Atoi(monthly)
	}
	if category != "" {
		f.Category = &category
	}
	f.Tag = nil
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			f.Tag = append(f.Tag, tag)
		}
	}
	return nil
}
