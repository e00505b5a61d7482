package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/pbxkit/softphone/internal/util"
)

type Config struct {
	Account  Account  `json:"account"`
	Push     Push     `json:"push"`
	Peer     Peer     `json:"peer"`
	Paths    Paths    `json:"paths"`
	Behavior Behavior `json:"behavior"`
}

type Account struct {
	Username string `json:"username"`
	Token    string `json:"token"`

	// APIBase is the collaborator REST API root, e.g. "https://pbx.example.org".
	APIBase string `json:"api_base"`

	// DefaultDevice is the extension type designated to receive calls:
	// webrtc, physical, nethlink, mobile, or empty for none.
	DefaultDevice string `json:"default_device"`

	// Extensions owned by this user. Empty means they are fetched from
	// the API at startup.
	Extensions []string `json:"extensions"`
}

type Push struct {
	// URL of the PBX push channel, ws:// or wss://.
	URL string `json:"url"`
}

type Peer struct {
	// Watchdog timing (minutes). The check interval is deliberately a bit
	// longer than the deadline so one check spans a full idle window.
	WatchdogDeadlineMin int `json:"watchdog_deadline_min"`
	WatchdogIntervalMin int `json:"watchdog_interval_min"`
}

type Paths struct {
	// CacheDir holds the per-user key-value cache database.
	CacheDir string `json:"cache_dir"`
}

type Behavior struct {
	// Ringtone file played on incoming calls. Empty uses the host's choice.
	Ringtone string `json:"ringtone"`

	// AutoOpenURL, when set, is announced once per incoming call via a
	// url-parameter notification (post-ring auto-action).
	AutoOpenURL string `json:"auto_open_url"`
}

func Default() Config {
	return Config{
		Push: Push{
			URL: "ws://127.0.0.1:8181/ws",
		},
		Peer: Peer{
			WatchdogDeadlineMin: 45,
			WatchdogIntervalMin: 50,
		},
		Paths: Paths{
			CacheDir: "data/cache",
		},
	}
}

var deviceTypes = map[string]bool{
	"": true, "webrtc": true, "physical": true, "nethlink": true, "mobile": true,
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Account.Username) == "" {
		return errors.New("account.username is required")
	}
	if !deviceTypes[c.Account.DefaultDevice] {
		return fmt.Errorf("account.default_device must be one of webrtc, physical, nethlink, mobile or empty")
	}
	if c.Account.APIBase != "" {
		u, err := url.Parse(c.Account.APIBase)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("account.api_base must be an http(s) URL")
		}
	}

	if strings.TrimSpace(c.Push.URL) == "" {
		return errors.New("push.url is required")
	}
	u, err := url.Parse(c.Push.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return errors.New("push.url must be a ws(s) URL")
	}

	if c.Peer.WatchdogDeadlineMin <= 0 {
		return errors.New("peer.watchdog_deadline_min must be > 0")
	}
	if c.Peer.WatchdogIntervalMin <= c.Peer.WatchdogDeadlineMin {
		return errors.New("peer.watchdog_interval_min must be > peer.watchdog_deadline_min")
	}

	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("paths.cache_dir is required")
	}

	return nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	// Write the template directly: the default has no username yet, so it
	// would not pass Save's validation until the user fills it in.
	cfg := Default()
	if err := util.WriteJSONFile(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}
