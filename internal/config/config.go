package config

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bashhack/repolock/internal/common"
	"github.com/bashhack/repolock/internal/errors"
	"github.com/bashhack/repolock/internal/lock"
)

const (
	// DefaultLockFile is the lock path used when none is configured, relative
	// to the project directory.
	DefaultLockFile = ".repolock/tmp/lock"

	// DefaultConfigFile is the project-level configuration file.
	DefaultConfigFile = ".repolock/config.yaml"

	// EnvPrefix prefixes every environment variable repolock reads.
	EnvPrefix = "REPOLOCK_"
)

// Config holds all repolock settings. Zero durations and counts mean "use
// the lock package default".
type Config struct {
	// LockFile is the lock path every contender must agree on. A relative
	// path is taken relative to ProjectDir.
	LockFile string `yaml:"lockfile"`

	// ProjectDir anchors relative LockFile and TmpDir paths. Empty means the
	// current directory.
	ProjectDir string `yaml:"project_dir"`

	// TmpDir holds hardlink claim files under short hashed names.
	TmpDir string `yaml:"tmp_dir"`

	// Friendly shows a notice while waiting for a busy lock.
	Friendly bool `yaml:"friendly"`

	// HardlinkLock selects the hardlink backend instead of the PID-file lock.
	HardlinkLock bool `yaml:"hardlink_lock"`

	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
	Lease   time.Duration `yaml:"lease"`
	Jitter  bool          `yaml:"jitter"`

	// Disabled replaces the lock with one that never touches the filesystem.
	Disabled bool `yaml:"disabled"`

	Verbose bool   `yaml:"verbose"`
	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"log_file"`

	VersionInfo VersionInfo `yaml:"-"`
}

// VersionInfo contains build-time version metadata
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		LockFile: DefaultLockFile,
		Verbose:  false,

		VersionInfo: VersionInfo{
			Version: "dev",
			Commit:  "unknown",
			Date:    "unknown",
		},
	}
}

// LoadFile merges a YAML config file into c. A missing file is not an error
// unless required is set.
func (c *Config) LoadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.NewConfigError("config", path, errors.Wrap(errors.ErrInvalidConfiguration, err.Error()))
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewConfigError("config", path, errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("parse yaml: %v", err)))
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.NewConfigError("env-file", path, errors.Wrap(errors.ErrInvalidConfiguration, err.Error()))
	}
	return nil
}

// LoadFromEnvironment updates config from REPOLOCK_* environment variables
func (c *Config) LoadFromEnvironment() {
	c.LockFile = getEnvString("LOCKFILE", c.LockFile)
	c.ProjectDir = getEnvString("PROJECT_DIR", c.ProjectDir)
	c.TmpDir = getEnvString("TMP_DIR", c.TmpDir)
	c.Friendly = getEnvBool("FRIENDLY", c.Friendly)
	c.HardlinkLock = getEnvBool("HARDLINK_LOCK", c.HardlinkLock)
	c.Timeout = getEnvDuration("TIMEOUT", c.Timeout)
	c.Retries = getEnvInt("RETRIES", c.Retries)
	c.Lease = getEnvDuration("LEASE", c.Lease)
	c.Jitter = getEnvBool("JITTER", c.Jitter)
	c.Disabled = getEnvBool("DISABLED", c.Disabled)
	c.Verbose = getEnvBool("VERBOSE", c.Verbose)
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.LogFile = getEnvString("LOG_FILE", c.LogFile)
}

// BindFlags registers command-line flags that write straight into c.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.LockFile, "lockfile", c.LockFile, "Path of the lock file shared by all contenders")
	fs.StringVar(&c.ProjectDir, "project-dir", c.ProjectDir, "Directory relative lock paths are resolved against (default: git work tree root)")
	fs.StringVar(&c.TmpDir, "tmp-dir", c.TmpDir, "Directory for hardlink claim files (hashed short names); must be on the same filesystem as the lock file")
	fs.BoolVar(&c.Friendly, "friendly", c.Friendly, "Show a notice while waiting for a busy lock")
	fs.BoolVar(&c.HardlinkLock, "hardlink-lock", c.HardlinkLock, "Use hardlink claims instead of a PID-file lock (for NFS)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "How long to wait for the lock (default 3s)")
	fs.IntVar(&c.Retries, "retries", c.Retries, "PID-file lock attempts spread over the timeout (default 6)")
	fs.DurationVar(&c.Lease, "lease", c.Lease, "Lease written into hardlink claims (default 8760h)")
	fs.BoolVar(&c.Jitter, "jitter", c.Jitter, "Randomise PID-file lock retry delays by ±25%")
	fs.BoolVar(&c.Disabled, "no-lock", c.Disabled, "Do not lock at all")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Show debug warnings on stdout")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Write debug logs to the log file")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Path to log file (default: ~/.local/share/repolock/logs/repolock-{hash}.log)")
}

// OverrideFromFlags copies into c every flag the user set explicitly on fs,
// taking the values from flagged (the config the flags were bound to).
func (c *Config) OverrideFromFlags(fs *pflag.FlagSet, flagged *Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "lockfile":
			c.LockFile = flagged.LockFile
		case "project-dir":
			c.ProjectDir = flagged.ProjectDir
		case "tmp-dir":
			c.TmpDir = flagged.TmpDir
		case "friendly":
			c.Friendly = flagged.Friendly
		case "hardlink-lock":
			c.HardlinkLock = flagged.HardlinkLock
		case "timeout":
			c.Timeout = flagged.Timeout
		case "retries":
			c.Retries = flagged.Retries
		case "lease":
			c.Lease = flagged.Lease
		case "jitter":
			c.Jitter = flagged.Jitter
		case "no-lock":
			c.Disabled = flagged.Disabled
		case "verbose":
			c.Verbose = flagged.Verbose
		case "debug":
			c.Debug = flagged.Debug
		case "log-file":
			c.LogFile = flagged.LogFile
		}
	})
}

// Finalize validates and finalizes the configuration
func (c *Config) Finalize() error {
	if c.LockFile == "" {
		return errors.NewConfigError("lockfile", nil, errors.Wrap(errors.ErrInvalidConfiguration, "lock file path is required"))
	}

	absLockFile, err := c.resolve(c.LockFile)
	if err != nil {
		return errors.NewConfigError("lockfile", c.LockFile, errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("failed to resolve absolute path: %v", err)))
	}
	c.LockFile = absLockFile

	if c.Timeout < 0 {
		return errors.NewConfigError("timeout", c.Timeout, errors.Wrap(errors.ErrInvalidConfiguration, "must not be negative"))
	}
	if c.Retries < 0 {
		return errors.NewConfigError("retries", c.Retries, errors.Wrap(errors.ErrInvalidConfiguration, "must not be negative"))
	}
	if c.Lease < 0 {
		return errors.NewConfigError("lease", c.Lease, errors.Wrap(errors.ErrInvalidConfiguration, "must not be negative"))
	}

	if !c.Disabled {
		if err := os.MkdirAll(filepath.Dir(c.LockFile), 0o755); err != nil {
			return errors.NewConfigError("lockfile", c.LockFile, errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("failed to create lock directory: %v", err)))
		}
	}

	if c.TmpDir != "" {
		absTmpDir, err := c.resolve(c.TmpDir)
		if err != nil {
			return errors.NewConfigError("tmp_dir", c.TmpDir, errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("failed to resolve absolute path: %v", err)))
		}
		if err := os.MkdirAll(absTmpDir, 0o755); err != nil {
			return errors.NewConfigError("tmp_dir", absTmpDir, errors.Wrap(errors.ErrInvalidConfiguration, fmt.Sprintf("failed to create directory: %v", err)))
		}
		c.TmpDir = absTmpDir

		if c.HardlinkLock && !c.Disabled {
			if err := checkLinkable(c.TmpDir, filepath.Dir(c.LockFile)); err != nil {
				return errors.NewConfigError("tmp_dir", c.TmpDir, errors.Wrap(errors.ErrInvalidConfiguration,
					fmt.Sprintf("claims in tmp_dir cannot be hardlinked next to the lock file (they must share a filesystem): %v", err)))
			}
		}
	}

	if c.LogFile == "" {
		// Follow XDG Base Directory Specification
		logDir := os.Getenv("XDG_DATA_HOME")
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err == nil {
				logDir = filepath.Join(homeDir, ".local", "share")
			} else {
				logDir = os.TempDir()
			}
		}

		lockHash := fmt.Sprintf("%x", sha256OfString(c.LockFile)[:8])
		c.LogFile = filepath.Join(logDir, "repolock", "logs", fmt.Sprintf("repolock-%s.log", lockHash))
	}

	return nil
}

// checkLinkable hardlinks a scratch file from tmpDir into lockDir, which is
// what every hardlink claim does. It fails with EXDEV across filesystems.
func checkLinkable(tmpDir, lockDir string) error {
	f, err := os.CreateTemp(tmpDir, ".repolock-linkcheck-*")
	if err != nil {
		return err
	}
	src := f.Name()
	_ = f.Close()
	defer func() { _ = os.Remove(src) }()

	dst := filepath.Join(lockDir, filepath.Base(src))
	if err := os.Link(src, dst); err != nil {
		return err
	}
	return os.Remove(dst)
}

// NeedsProjectDir reports whether a relative path is waiting for ProjectDir.
func (c *Config) NeedsProjectDir() bool {
	if c.ProjectDir != "" {
		return false
	}
	return (c.LockFile != "" && !filepath.IsAbs(c.LockFile)) ||
		(c.TmpDir != "" && !filepath.IsAbs(c.TmpDir))
}

func (c *Config) resolve(path string) (string, error) {
	if filepath.IsAbs(path) || c.ProjectDir == "" {
		return filepath.Abs(path)
	}
	return filepath.Abs(filepath.Join(c.ProjectDir, path))
}

// LockOptions translates the configuration into lock.Options. The friendly
// notice, when enabled, is written to output.
func (c *Config) LockOptions(logger common.Logger, output io.Writer) lock.Options {
	return lock.Options{
		TmpDir:   c.TmpDir,
		Friendly: c.Friendly,
		Hardlink: c.HardlinkLock,
		Timeout:  c.Timeout,
		Retries:  c.Retries,
		Lease:    c.Lease,
		Jitter:   c.Jitter,
		Logger:   logger,
		Output:   output,
	}
}

// NewLock builds the lock handle the configuration describes.
func (c *Config) NewLock(logger common.Logger, output io.Writer) lock.Handle {
	if c.Disabled {
		return lock.NewNoOp(c.LockFile)
	}
	return lock.Make(c.LockFile, c.LockOptions(logger, output))
}

// Backend names the lock implementation NewLock returns.
func (c *Config) Backend() string {
	switch {
	case c.Disabled:
		return "none"
	case c.HardlinkLock:
		return "hardlink"
	default:
		return "pidfile"
	}
}

func envKey(key string) string {
	return EnvPrefix + key
}

// getEnvString returns an environment variable string or a default value
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(envKey(key)); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as int or a default value
func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(envKey(key)); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1.5s") and bare seconds ("3").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(envKey(key))
	if !exists {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultValue
}

// getEnvBool returns an environment variable as bool or a default value
func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(envKey(key)); exists {
		valueLower := strings.ToLower(valueStr)
		if valueLower == "true" || valueLower == "1" || valueLower == "yes" {
			return true
		}
		if valueLower == "false" || valueLower == "0" || valueLower == "no" {
			return false
		}
	}
	return defaultValue
}

// sha256OfString returns the SHA256 hash of a string
func sha256OfString(input string) []byte {
	hash := sha256.Sum256([]byte(input))
	return hash[:]
}
