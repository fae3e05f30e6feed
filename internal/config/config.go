package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"taskdeck/internal/view"
)

const (
	DefaultConfigFileName  = "config.toml"
	DefaultDBName          = "taskdeck.db"
	DefaultSessionFileName = "session.toml"
	DefaultLogFileName     = "taskdeck.log"
	DefaultAPIURL          = "http://localhost:8080"
	DefaultAddr            = ":8080"

	EnvConfig    = "TASKDECK_CONFIG"
	EnvJWTSecret = "TASKDECK_JWT_SECRET"
	EnvAPIURL    = "TASKDECK_API_URL"
)

type Keymap struct {
	Quit           string `toml:"quit"`
	Add            string `toml:"add"`
	Up             string `toml:"up"`
	Down           string `toml:"down"`
	Toggle         string `toml:"toggle"`
	Delete         string `toml:"delete"`
	Edit           string `toml:"edit"`
	Confirm        string `toml:"confirm"`
	Cancel         string `toml:"cancel"`
	NextField      string `toml:"next_field"`
	Search         string `toml:"search"`
	FilterPriority string `toml:"filter_priority"`
	FilterCategory string `toml:"filter_category"`
	ClearFilters   string `toml:"clear_filters"`
	SortField      string `toml:"sort_field"`
	SortOrder      string `toml:"sort_order"`
	Refresh        string `toml:"refresh"`
	Logout         string `toml:"logout"`
}

type Server struct {
	Addr       string   `toml:"addr"`
	DBPath     string   `toml:"db_path"`
	JWTSecret  string   `toml:"jwt_secret"`
	Issuer     string   `toml:"issuer"`
	AccessTTL  Duration `toml:"access_ttl"`
	RefreshTTL Duration `toml:"refresh_ttl"`
	BcryptCost int      `toml:"bcrypt_cost"`
}

type Client struct {
	APIURL         string   `toml:"api_url"`
	SessionPath    string   `toml:"session_path"`
	RequestTimeout Duration `toml:"request_timeout"`
	SortField      string   `toml:"sort_field"`
	SortOrder      string   `toml:"sort_order"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type Config struct {
	Server Server `toml:"server"`
	Client Client `toml:"client"`
	Log    Log    `toml:"log"`
	Keys   Keymap `toml:"keys"`
}

// Duration is a time.Duration written as "15m" in the file.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// ResolveConfigPath returns $TASKDECK_CONFIG, or config.toml under the
// user config directory.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(Dir(), DefaultConfigFileName)
}

// Dir is where taskdeck keeps its files by default.
func Dir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "taskdeck")
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "taskdeck")
	}
	return "."
}

// LoadOrCreate reads the config at path, writing the defaults there first
// when the file does not exist. Relative paths inside the file are taken
// relative to the file's directory.
func LoadOrCreate(path string) (Config, error) {
	dir := filepath.Dir(path)
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(dir), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg = cfg.withDefaults().resolve(dir)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values the rest of the program parses later.
func (c Config) Validate() error {
	if _, err := view.ParseSortField(c.Client.SortField); err != nil {
		return fmt.Errorf("client.sort_field: %w", err)
	}
	if _, err := view.ParseSortOrder(c.Client.SortOrder); err != nil {
		return fmt.Errorf("client.sort_order: %w", err)
	}
	if c.Server.AccessTTL.Duration <= 0 || c.Server.RefreshTTL.Duration <= 0 {
		return errors.New("server token ttls must be positive")
	}
	return nil
}

// Criteria is the list view the TUI and the tasks command start from.
func (c Config) Criteria() view.Criteria {
	cr := view.DefaultCriteria()
	if f, err := view.ParseSortField(c.Client.SortField); err == nil {
		cr.Field = f
	}
	if o, err := view.ParseSortOrder(c.Client.SortOrder); err == nil {
		cr.Order = o
	}
	return cr
}

func (c Config) withDefaults() Config {
	d := defaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = d.Server.DBPath
	}
	if c.Server.Issuer == "" {
		c.Server.Issuer = d.Server.Issuer
	}
	if c.Client.APIURL == "" {
		c.Client.APIURL = d.Client.APIURL
	}
	if c.Client.SessionPath == "" {
		c.Client.SessionPath = d.Client.SessionPath
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	return c
}

func (c Config) resolve(dir string) Config {
	c.Server.DBPath = relativeTo(dir, c.Server.DBPath)
	c.Client.SessionPath = relativeTo(dir, c.Client.SessionPath)
	c.Log.File = relativeTo(dir, c.Log.File)
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.Client.APIURL = v
	}
	return c
}

func relativeTo(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		Server: Server{
			Addr:       DefaultAddr,
			DBPath:     DefaultDBName,
			Issuer:     "taskdeck",
			AccessTTL:  Duration{15 * time.Minute},
			RefreshTTL: Duration{7 * 24 * time.Hour},
		},
		Client: Client{
			APIURL:      DefaultAPIURL,
			SessionPath: DefaultSessionFileName,
			SortField:   string(view.SortCreatedAt),
			SortOrder:   string(view.Desc),
		},
		Log: Log{
			Level:  "info",
			Format: "text",
			File:   DefaultLogFileName,
		},
		Keys: Keymap{
			Quit:           "q",
			Add:            "a",
			Up:             "k",
			Down:           "j",
			Toggle:         " ",
			Delete:         "d",
			Edit:           "e",
			Confirm:        "enter",
			Cancel:         "esc",
			NextField:      "tab",
			Search:         "/",
			FilterPriority: "p",
			FilterCategory: "c",
			ClearFilters:   "x",
			SortField:      "s",
			SortOrder:      "o",
			Refresh:        "r",
			Logout:         "L",
		},
	}
}
