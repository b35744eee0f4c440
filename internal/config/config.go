package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppName               = "daylist"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "daylist.db"
	DefaultLogName        = "daylist.log"
	DefaultStorageKey     = "daylist.tasks"
	DefaultPollInterval   = time.Minute
)

type Keymap struct {
	Quit       string `toml:"quit"`
	Add        string `toml:"add"`
	Up         string `toml:"up"`
	Down       string `toml:"down"`
	Toggle     string `toml:"toggle"`
	Delete     string `toml:"delete"`
	Edit       string `toml:"edit"`
	Confirm    string `toml:"confirm"`
	Cancel     string `toml:"cancel"`
	Notify     string `toml:"notify"`
	NotifyTime string `toml:"notify_time"`
	Clear      string `toml:"clear_completed"`
	PrevDay    string `toml:"prev_day"`
	NextDay    string `toml:"next_day"`
	Today      string `toml:"today"`
	Import     string `toml:"import"`
}

type Config struct {
	DBPath       string `toml:"db_path"`
	Backend      string `toml:"backend"`
	StorageKey   string `toml:"storage_key"`
	PollInterval string `toml:"poll_interval"`
	LogPath      string `toml:"log_path"`
	LogLevel     string `toml:"log_level"`
	Keys         Keymap `toml:"keys"`
}

// ResolveConfigPath returns the per-user config file, or a file in the
// working directory when no user config dir is available.
func ResolveConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, AppName, DefaultConfigFileName)
}

// LoadOrCreate reads path, writing the defaults there first if it does not
// exist. Relative db and log paths are taken relative to the config file.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(filepath.Dir(path)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.fillBlanks()
	return cfg.resolve(filepath.Dir(path)), nil
}

// Interval is the reminder poll interval, falling back to one minute.
func (c Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

func (c *Config) fillBlanks() {
	def := Default()
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.StorageKey == "" {
		c.StorageKey = def.StorageKey
	}
	if c.PollInterval == "" {
		c.PollInterval = def.PollInterval
	}
	if c.LogPath == "" {
		c.LogPath = def.LogPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	c.Keys.fillBlanks(def.Keys)
}

func (k *Keymap) fillBlanks(def Keymap) {
	fields := []struct {
		dst *string
		def string
	}{
		{&k.Quit, def.Quit},
		{&k.Add, def.Add},
		{&k.Up, def.Up},
		{&k.Down, def.Down},
		{&k.Toggle, def.Toggle},
		{&k.Delete, def.Delete},
		{&k.Edit, def.Edit},
		{&k.Confirm, def.Confirm},
		{&k.Cancel, def.Cancel},
		{&k.Notify, def.Notify},
		{&k.NotifyTime, def.NotifyTime},
		{&k.Clear, def.Clear},
		{&k.PrevDay, def.PrevDay},
		{&k.NextDay, def.NextDay},
		{&k.Today, def.Today},
		{&k.Import, def.Import},
	}
	for _, f := range fields {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

func (c Config) resolve(dir string) Config {
	if c.DBPath != "" && !filepath.IsAbs(c.DBPath) {
		c.DBPath = filepath.Join(dir, c.DBPath)
	}
	if c.LogPath != "" && !filepath.IsAbs(c.LogPath) {
		c.LogPath = filepath.Join(dir, c.LogPath)
	}
	return c
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default is the configuration written on first launch.
func Default() Config {
	return Config{
		DBPath:       DefaultDBName,
		Backend:      "sqlite",
		StorageKey:   DefaultStorageKey,
		PollInterval: DefaultPollInterval.String(),
		LogPath:      DefaultLogName,
		LogLevel:     "info",
		Keys: Keymap{
			Quit:       "q",
			Add:        "a",
			Up:         "k",
			Down:       "j",
			Toggle:     " ",
			Delete:     "d",
			Edit:       "e",
			Confirm:    "enter",
			Cancel:     "esc",
			Notify:     "n",
			NotifyTime: "N",
			Clear:      "c",
			PrevDay:    "[",
			NextDay:    "]",
			Today:      "t",
			Import:     "i",
		},
	}
}
