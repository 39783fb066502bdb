package model

// DayOverride replaces the default hours or covers cap for one date.
// A nil pointer field means "use the default".
type DayOverride struct {
	Date        string
	Closed      bool
	OpenMinute  *int
	CloseMinute *int
	MaxCovers   *int
	Note        string
}
