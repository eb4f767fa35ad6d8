package analytics

import (
	"time"

	"resort-insights-mcp/internal/apperrors"
)

// Window is an inclusive date range, both ends "YYYY-MM-DD" in UTC.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

// MonthRange expands a "YYYY-MM" month into its inclusive first/last
// day window. All math is in UTC; leap years fall out of AddDate.
func MonthRange(month string) (Window, error) {
	t, err := parseMonth(month)
	if err != nil {
		return Window{}, err
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return Window{
		Start: start.Format(dateLayout),
		End:   end.Format(dateLayout),
	}, nil
}

// PreviousMonth returns the month before the given "YYYY-MM" month,
// wrapping across year boundaries.
func PreviousMonth(month string) (string, error) {
	t, err := parseMonth(month)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, -1, 0).Format(monthLayout), nil
}

// MonthsBefore steps back n months from the given month.
func MonthsBefore(month string, n int) (string, error) {
	t, err := parseMonth(month)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, -n, 0).Format(monthLayout), nil
}

// PreviousWindow returns the equal-length window that ends the day
// before the given window starts.
func PreviousWindow(w Window) (Window, error) {
	start, err := parseDate(w.Start)
	if err != nil {
		return Window{}, err
	}
	end, err := parseDate(w.End)
	if err != nil {
		return Window{}, err
	}
	if end.Before(start) {
		return Window{}, apperrors.NewValidation("window end %q is before start %q", w.End, w.Start)
	}
	days := int(end.Sub(start).Hours() / 24)
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -days)
	return Window{
		Start: prevStart.Format(dateLayout),
		End:   prevEnd.Format(dateLayout),
	}, nil
}

func parseMonth(month string) (time.Time, error) {
	t, err := time.ParseInLocation(monthLayout, month, time.UTC)
	if err != nil {
		return time.Time{}, apperrors.NewValidation("invalid month %q, expected YYYY-MM", month)
	}
	return t, nil
}

func parseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, apperrors.NewValidation("invalid date %q, expected YYYY-MM-DD", date)
	}
	return t, nil
}
