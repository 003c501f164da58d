package changelog

import "time"

const (
	actionTimeLayout = "2006-01-02 15:04"
	reprDisplayLen   = 30
)

// ActionName returns the short display name of flag, or "-" if unknown.
func (c Catalog) ActionName(flag ActionFlag) string {
	switch flag {
	case Addition:
		return c.ActionAdded
	case Change:
		return c.ActionChanged
	case Deletion:
		return c.ActionDeleted
	}
	return "-"
}

// FormatActionTime formats an entry timestamp for list views.
func FormatActionTime(t time.Time) string {
	return t.Format(actionTimeLayout)
}

// TruncateRepr shortens an object representation for list views. The
// ellipsis is always appended.
func TruncateRepr(repr string) string {
	runes := []rune(repr)
	if len(runes) > reprDisplayLen {
		runes = runes[:reprDisplayLen]
	}
	return string(runes) + "..."
}
