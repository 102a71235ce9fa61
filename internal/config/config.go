// Package config manages the YAML global configuration, CLI flags, and the
// per-directory overlay files read while rendering listings.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// GlobalConfigName is the file name of the global configuration file looked
// up in the working directory.
const GlobalConfigName = "spoofdir.yaml"

// Annotation formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Dispositions understood by browsers.
const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

// Folder is one base directory of the search path. A folder with a GitRef
// is served from the git object database instead of the working tree.
type Folder struct {
	Path    string `yaml:"path" json:"path"`
	GitRef  string `yaml:"git_ref,omitempty" json:"git_ref,omitempty"`
	SubPath string `yaml:"sub_path,omitempty" json:"sub_path,omitempty"`
}

// Rule is a regular expression matched against a file name.
type Rule struct {
	Pattern       string `yaml:"pattern" json:"pattern"`
	CaseSensitive bool   `yaml:"case_sensitive" json:"case_sensitive"`
}

// Config holds all configuration options for spoofdir
type Config struct {
	// Search path, consulted in order
	Dirs []Folder `yaml:"dirs,omitempty" json:"dirs"`

	Port     int    `yaml:"port"`
	Prefix   string `yaml:"prefix"`
	Confine  bool   `yaml:"confine"`
	Watch    bool   `yaml:"watch"`
	Open     bool   `yaml:"open"`
	Gzip     bool   `yaml:"gzip"`
	LogLevel string `yaml:"log_level"` // empty keeps LOG_LEVEL or info

	// Name of the per-directory overlay file
	LocalConfig string `yaml:"local_config"`

	Title            string `yaml:"title"`
	Annotation       string `yaml:"annotation"`
	AnnotationFormat string `yaml:"annotation_format"`
	ListSubdirs      bool   `yaml:"list_subdirs"`

	BannerBgColor   string   `yaml:"banner_bgcolor"`
	BannerFgColor   string   `yaml:"banner_fgcolor"`
	BannerLinkColor string   `yaml:"banner_linkcolor"`
	RowColors       []string `yaml:"row_colors"`

	DefaultMimeType    string            `yaml:"default_mimetype"`
	MimeTypes          map[string]string `yaml:"mimetypes"`
	DefaultDisposition string            `yaml:"default_disposition"`
	Dispositions       map[string]string `yaml:"dispositions"`
	Cacheable          map[string]bool   `yaml:"cacheable"`
	SniffUnknown       bool              `yaml:"sniff_unknown"`

	Ignore  []Rule `yaml:"ignore"`
	Index   []Rule `yaml:"index"`
	Dynamic []Rule `yaml:"dynamic"`

	// Interpreter run as a CGI program for files matching Dynamic
	ScriptInterpreter string `yaml:"script_interpreter"`

	// Internal: path of the loaded config file
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Port:             8080,
		Prefix:           "/",
		Confine:          true,
		Watch:            false,
		LocalConfig:      "spoofdir.info",
		AnnotationFormat: FormatHTML,
		ListSubdirs:      true,

		BannerBgColor:   "#5544ff",
		BannerFgColor:   "#ffff00",
		BannerLinkColor: "#ffffff",
		RowColors:       []string{"#ccccee", "#ffffff"},

		DefaultMimeType: "application/octet-stream",
		MimeTypes: map[string]string{
			"htm":   "text/html",
			"html":  "text/html",
			"html3": "text/html",
			"ht3":   "text/html",
			"txt":   "text/plain",
			"text":  "text/plain",
		},
		DefaultDisposition: DispositionAttachment,
		Dispositions: map[string]string{
			"text/html":  DispositionInline,
			"text/plain": DispositionInline,
		},
		Cacheable: map[string]bool{
			"text/html":  true,
			"text/plain": true,
		},

		Ignore: []Rule{
			{Pattern: `^index\..+$`, CaseSensitive: true},
		},
		Index: []Rule{
			{Pattern: `^index.s?html?$`, CaseSensitive: true},
			{Pattern: `^index.php[1-9]?$`, CaseSensitive: true},
		},
		Dynamic: []Rule{
			{Pattern: `\.php[0-9]?$`, CaseSensitive: false},
		},
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/spoofdir"
	}
	return filepath.Join(home, ".config", "spoofdir")
}

// GetConfigPath returns the full path to the per-user config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Load loads configuration from file and command line arguments (without
// the program name).
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	// Filter out 'serve' subcommand if present
	if len(args) > 0 && args[0] == "serve" {
		args = args[1:]
	}

	fset := flag.NewFlagSet("spoofdir", flag.ContinueOnError)
	var dirs stringList
	fset.Var(&dirs, "dir", "Base directory of the search path (repeatable, searched in order)")
	fset.Var(&dirs, "d", "Base directory (shorthand)")
	port := fset.Int("port", 0, "HTTP server port")
	prefix := fset.String("prefix", "", "URL prefix the virtual tree is mounted at")
	watch := fset.Bool("watch", false, "Live-reload open listings when files change")
	open := fset.Bool("open", false, "Open browser on startup")
	configFile := fset.String("config", "", "Configuration file path")
	logLevel := fset.String("log-level", "", "Log level (error, warn, info, debug, trace)")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Determine config file path
	cfgPath := *configFile
	if cfgPath == "" {
		if _, err := os.Stat(GetConfigPath()); err == nil {
			cfgPath = GetConfigPath()
		} else if _, err := os.Stat(GlobalConfigName); err == nil {
			cfgPath = GlobalConfigName
		}
	}

	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", cfgPath, err)
		}
		cfg.configPath = cfgPath
	}

	// Command line flags override config file (only if explicitly set)
	if len(dirs) > 0 {
		cfg.Dirs = nil
		for _, d := range dirs {
			cfg.Dirs = append(cfg.Dirs, Folder{Path: d})
		}
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *prefix != "" {
		cfg.Prefix = *prefix
	}
	if set["watch"] {
		cfg.Watch = *watch
	}
	if set["open"] {
		cfg.Open = *open
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize resolves folder paths, canonicalizes the prefix and table keys,
// and hides the administrative files from listings.
func (c *Config) Normalize() {
	if len(c.Dirs) == 0 {
		c.Dirs = []Folder{{Path: "."}}
	}
	for i := range c.Dirs {
		absPath, err := filepath.Abs(c.Dirs[i].Path)
		if err == nil {
			c.Dirs[i].Path = absPath
		}
	}

	c.Prefix = "/" + strings.Trim(c.Prefix, "/")

	c.MimeTypes = CanonicalExtensions(c.MimeTypes)

	admin := []string{GlobalConfigName, c.LocalConfig}
	if c.configPath != "" {
		admin = append(admin, filepath.Base(c.configPath))
	}
	for _, name := range admin {
		if name == "" {
			continue
		}
		rule := Rule{Pattern: "^" + regexp.QuoteMeta(name) + "$", CaseSensitive: true}
		if !containsRule(c.Ignore, rule) {
			c.Ignore = append(c.Ignore, rule)
		}
	}
}

// CanonicalExtensions returns a copy of a MIME table with keys lower-cased
// and stripped of a leading ".".
func CanonicalExtensions(table map[string]string) map[string]string {
	out := make(map[string]string, len(table))
	for ext, mime := range table {
		out[strings.ToLower(strings.TrimPrefix(ext, "."))] = mime
	}
	return out
}

func containsRule(rules []Rule, r Rule) bool {
	for _, existing := range rules {
		if existing == r {
			return true
		}
	}
	return false
}

// Validate reports configuration values that cannot be served.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if err := validFormat(c.AnnotationFormat); err != nil {
		return err
	}
	if err := validDisposition(c.DefaultDisposition); err != nil {
		return err
	}
	for mime, d := range c.Dispositions {
		if err := validDisposition(d); err != nil {
			return fmt.Errorf("disposition for %s: %w", mime, err)
		}
	}
	if len(c.RowColors) == 0 {
		return fmt.Errorf("row_colors must not be empty")
	}
	for _, f := range c.Dirs {
		if strings.Contains(f.SubPath, "..") {
			return fmt.Errorf("sub_path of %s must not contain ..", f.Path)
		}
	}
	return nil
}

func validFormat(format string) error {
	switch format {
	case "", FormatHTML, FormatMarkdown:
		return nil
	}
	return fmt.Errorf("unknown annotation_format %q", format)
}

func validDisposition(d string) error {
	switch d {
	case DispositionInline, DispositionAttachment:
		return nil
	}
	return fmt.Errorf("unknown disposition %q", d)
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// GetConfigFilePath returns the path to the loaded config file, or "" when
// running on defaults and flags.
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}
