package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overrides file values with environment variables. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	set("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	set("GOOGLE_REDIRECT_URI", &c.Google.RedirectURI)
	set("GOOGLE_MAPS_API_KEY", &c.Google.MapsAPIKey)
	set("HOME_ADDRESS", &c.HomeAddress)
	set("LOG_LEVEL", &c.LogLevel)
}
