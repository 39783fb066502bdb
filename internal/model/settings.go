package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
)

// Setting keys of the key/value settings table.
const (
	KeyTimezone              = "timezone"
	KeyOpenTime              = "open_time"
	KeyCloseTime             = "close_time"
	KeySlotInterval          = "slot_interval_minutes"
	KeyMaxCovers             = "max_covers"
	KeyDiningDurations       = "dining_durations"
	KeyClosedWeekdays        = "closed_weekdays"
	KeySelfServiceCutoff     = "self_service_cutoff_hours"
	KeyRestaurantPhone       = "restaurant_phone"
	KeyRestaurantEmail       = "restaurant_email"
	KeyAutoConfirmWidget     = "auto_confirm_widget"
	KeyWaitlistDefaultWait   = "waitlist_default_wait_minutes"
	KeyWaitlistSmartEstimate = "waitlist_smart_estimate"
	KeyWaitlistPerParty      = "waitlist_minutes_per_party"
	KeyWaitlistVisible       = "waitlist_visible_minutes"
	KeyPOSVendor             = "pos_vendor"
	KeyPOSBaseURL            = "pos_base_url"
	KeyPOSAPIKey             = "pos_api_key"
	KeyPOSLocationID         = "pos_location_id"
	KeyPOSLastSyncAt         = "pos_last_sync_at"
	KeyPOSOpenChecks         = "pos_open_checks"
	KeyPOSLastError          = "pos_last_error"
)

// DurationStep maps parties up to MaxParty to a dining duration.
type DurationStep struct {
	MaxParty int
	Minutes  int
}

// POSCredentials are the vendor connection details stored in settings.
type POSCredentials struct {
	Vendor     string
	BaseURL    string
	APIKey     string
	LocationID string
}

// Settings is an immutable snapshot of the restaurant's configuration.
// Components receive it per call instead of reading a global store.
type Settings struct {
	Location               *time.Location
	OpenMinute             int
	CloseMinute            int
	SlotInterval           int
	MaxCovers              int // 0 = unlimited
	Durations              []DurationStep
	ClosedWeekdays         map[time.Weekday]bool
	SelfServiceCutoffHours int
	RestaurantPhone        string
	RestaurantEmail        string
	AutoConfirmWidget      bool
	WaitlistDefaultWait    int
	WaitlistSmartEstimate  bool
	WaitlistPerParty       int
	WaitlistVisibleMinutes int
	POS                    POSCredentials
}

// DefaultSettings is used for keys missing from the table.
func DefaultSettings() Settings {
	return Settings{
		Location:     time.UTC,
		OpenMinute:   17 * 60,
		CloseMinute:  22 * 60,
		SlotInterval: 15,
		Durations: []DurationStep{
			{MaxParty: 2, Minutes: 90},
			{MaxParty: 4, Minutes: 105},
			{MaxParty: 6, Minutes: 120},
			{MaxParty: 8, Minutes: 150},
			{MaxParty: 99, Minutes: 180},
		},
		ClosedWeekdays:         map[time.Weekday]bool{},
		SelfServiceCutoffHours: 24,
		WaitlistDefaultWait:    15,
		WaitlistPerParty:       12,
		WaitlistVisibleMinutes: 5,
		POS:                    POSCredentials{Vendor: "mock"},
	}
}

// DiningDuration returns the duration for a party size. The table is
// monotonic; parties larger than the last step use the last step.
func (s Settings) DiningDuration(party int) int {
	for _, st := range s.Durations {
		if party <= st.MaxParty {
			return st.Minutes
		}
	}
	if n := len(s.Durations); n > 0 {
		return s.Durations[n-1].Minutes
	}
	return 90
}

// ParseSettings builds a snapshot from raw key/value rows.
func ParseSettings(kv map[string]string) (Settings, error) {
	s := DefaultSettings()
	var err error
	if v := kv[KeyTimezone]; v != "" {
		if s.Location, err = time.LoadLocation(v); err != nil {
			return s, fmt.Errorf("%s: %w", KeyTimezone, err)
		}
	}
	if v := kv[KeyOpenTime]; v != "" {
		if s.OpenMinute, err = localtime.ParseClock(v); err != nil {
			return s, fmt.Errorf("%s: %w", KeyOpenTime, err)
		}
	}
	if v := kv[KeyCloseTime]; v != "" {
		if s.CloseMinute, err = localtime.ParseClock(v); err != nil {
			return s, fmt.Errorf("%s: %w", KeyCloseTime, err)
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{KeySlotInterval, &s.SlotInterval},
		{KeyMaxCovers, &s.MaxCovers},
		{KeySelfServiceCutoff, &s.SelfServiceCutoffHours},
		{KeyWaitlistDefaultWait, &s.WaitlistDefaultWait},
		{KeyWaitlistPerParty, &s.WaitlistPerParty},
		{KeyWaitlistVisible, &s.WaitlistVisibleMinutes},
	}
	for _, f := range ints {
		v := kv[f.key]
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return s, fmt.Errorf("%s: invalid integer %q", f.key, v)
		}
		*f.dst = n
	}
	if s.SlotInterval <= 0 {
		return s, fmt.Errorf("%s must be positive", KeySlotInterval)
	}
	if v := kv[KeyDiningDurations]; v != "" {
		if s.Durations, err = ParseDurations(v); err != nil {
			return s, fmt.Errorf("%s: %w", KeyDiningDurations, err)
		}
	}
	if v := kv[KeyClosedWeekdays]; v != "" {
		if s.ClosedWeekdays, err = parseWeekdays(v); err != nil {
			return s, fmt.Errorf("%s: %w", KeyClosedWeekdays, err)
		}
	}
	s.AutoConfirmWidget = parseBool(kv[KeyAutoConfirmWidget])
	s.WaitlistSmartEstimate = parseBool(kv[KeyWaitlistSmartEstimate])
	s.RestaurantPhone = kv[KeyRestaurantPhone]
	s.RestaurantEmail = kv[KeyRestaurantEmail]
	if v := kv[KeyPOSVendor]; v != "" {
		s.POS.Vendor = v
	}
	s.POS.BaseURL = kv[KeyPOSBaseURL]
	s.POS.APIKey = kv[KeyPOSAPIKey]
	s.POS.LocationID = kv[KeyPOSLocationID]
	return s, nil
}

// ParseDurations parses "2:90,4:105,99:180". Steps are sorted by party size
// and both party sizes and minutes must be non-decreasing.
func ParseDurations(v string) ([]DurationStep, error) {
	var steps []DurationStep
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var st DurationStep
		if _, err := fmt.Sscanf(part, "%d:%d", &st.MaxParty, &st.Minutes); err != nil || st.MaxParty <= 0 || st.Minutes <= 0 {
			return nil, fmt.Errorf("invalid step %q", part)
		}
		steps = append(steps, st)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps")
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].MaxParty < steps[j].MaxParty })
	for i := 1; i < len(steps); i++ {
		if steps[i].Minutes < steps[i-1].Minutes {
			return nil, fmt.Errorf("durations must not shrink for larger parties")
		}
	}
	return steps, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekdays(v string) (map[time.Weekday]bool, error) {
	out := map[time.Weekday]bool{}
	for _, p := range strings.Split(v, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if len(p) > 3 {
			p = p[:3]
		}
		wd, ok := weekdayNames[p]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", p)
		}
		out[wd] = true
	}
	return out, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
