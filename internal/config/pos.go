package config

import "os"

// POSConfig seeds the POS connection settings. Values already stored in the
// settings table win; these only fill keys that are missing.
type POSConfig struct {
    Vendor     string
    BaseURL    string
    APIKey     string
    LocationID string
}

func LoadPOSConfig() POSConfig {
    return POSConfig{
        Vendor:     envStr("POS_VENDOR", "mock"),
        BaseURL:    os.Getenv("POS_BASE_URL"),
        APIKey:     os.Getenv("POS_API_KEY"),
        LocationID: os.Getenv("POS_LOCATION_ID"),
    }
}
