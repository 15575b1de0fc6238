package conf

import (
	"path/filepath"

	"github.com/juju/errors"
	"gopkg.in/ini.v1"
)

// Defaults applied when a key is absent from the config file.
const (
	DefaultBlockSizeKB  = 1
	DefaultPoolCapacity = 4
	DefaultPrintCount   = 20
	DefaultBindAddress  = "127.0.0.1"
	DefaultPort         = 4450
	DefaultSessionLimit = 16
)

// CommandLineArgs carries the flags handed to the process.
type CommandLineArgs struct {
	ConfigPath string
	DataDir    string
}

/*
[radb]
data_dir       = ./data
block_size_kb  = 1
pool_capacity  = 4
print_count    = 20
page_codec     = none
bind_address   = 127.0.0.1
port           = 4450
session_number = 16
log_path       =
log_level      = info
*/
type Cfg struct {
	Raw *ini.File

	DataDir       string
	BlockSizeKB   int
	PoolCapacity  int
	PrintCount    int
	PageCodec     string
	BindAddress   string
	Port          int
	SessionNumber int
	LogPath       string
	LogLevel      string
}

// NewCfg builds a Cfg populated with defaults.
func NewCfg() *Cfg {
	return &Cfg{
		Raw:           ini.Empty(),
		DataDir:       "data",
		BlockSizeKB:   DefaultBlockSizeKB,
		PoolCapacity:  DefaultPoolCapacity,
		PrintCount:    DefaultPrintCount,
		PageCodec:     "none",
		BindAddress:   DefaultBindAddress,
		Port:          DefaultPort,
		SessionNumber: DefaultSessionLimit,
		LogLevel:      "info",
	}
}

// Load overlays the ini file named by args on the defaults. An empty
// config path leaves the defaults in place; a named file that is
// absent or unreadable is an error.
func (cfg *Cfg) Load(args *CommandLineArgs) (*Cfg, error) {
	if args.DataDir != "" {
		cfg.DataDir = args.DataDir
	}
	if args.ConfigPath == "" {
		return cfg, nil
	}

	iniFile, err := ini.Load(args.ConfigPath)
	if err != nil {
		return nil, errors.Annotatef(err, "loading config %s", args.ConfigPath)
	}
	cfg.Raw = iniFile

	if err := cfg.parseEngineSection(cfg.Raw.Section("radb")); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

func (cfg *Cfg) parseEngineSection(section *ini.Section) error {
	if key := section.Key("data_dir"); key.String() != "" {
		cfg.DataDir = key.String()
	}
	cfg.BlockSizeKB = section.Key("block_size_kb").MustInt(cfg.BlockSizeKB)
	cfg.PoolCapacity = section.Key("pool_capacity").MustInt(cfg.PoolCapacity)
	cfg.PrintCount = section.Key("print_count").MustInt(cfg.PrintCount)
	cfg.PageCodec = section.Key("page_codec").In(cfg.PageCodec, []string{"none", "snappy", "lz4"})
	cfg.BindAddress = section.Key("bind_address").MustString(cfg.BindAddress)
	cfg.Port = section.Key("port").MustInt(cfg.Port)
	cfg.SessionNumber = section.Key("session_number").MustInt(cfg.SessionNumber)
	cfg.LogPath = section.Key("log_path").String()
	cfg.LogLevel = section.Key("log_level").MustString(cfg.LogLevel)

	if cfg.BlockSizeKB < 1 {
		return errors.Errorf("block_size_kb must be positive, got %d", cfg.BlockSizeKB)
	}
	// The external sort merges POOL_CAPACITY-1 runs at a time; below
	// three pages the merge degree degenerates and makes no progress.
	if cfg.PoolCapacity < 3 {
		return errors.Errorf("pool_capacity must be at least 3, got %d", cfg.PoolCapacity)
	}
	return nil
}

// TempDir is where page files and temporary-table sources live.
func (cfg *Cfg) TempDir() string {
	return filepath.Join(cfg.DataDir, "temp")
}
