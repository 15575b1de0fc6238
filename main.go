package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/conf"
	"github.com/xraengine/xra-server/server/dispatcher"
	"github.com/xraengine/xra-server/server/net"
	"github.com/xraengine/xra-server/server/ra/engine"
	"github.com/xraengine/xra-server/server/session"
)

const banner = `
******************************************************************************
 __  _____            ____
 \ \/ / _ \  __ _    / ___|  ___ _ ____   _____ _ __
  \  /| |_) |/ _' |  \___ \ / _ \ '__\ \ / / _ \ '__|
  /  \|  _ <| (_| |   ___) |  __/ |   \ V /  __/ |
 /_/\_\_| \_\\__,_|  |____/ \___|_|    \_/ \___|_|
******************************************************************************
`

func main() {
	var (
		configPath string
		dataDir    string
		serve      bool
	)
	flag.StringVar(&configPath, "configPath", "", "path to the ini config file")
	flag.StringVar(&dataDir, "dataDir", "", "override the data directory")
	flag.BoolVar(&serve, "serve", false, "serve queries over TCP instead of the interactive shell")
	flag.Parse()

	args := &conf.CommandLineArgs{
		ConfigPath: configPath,
		DataDir:    dataDir,
	}
	cfg, err := conf.NewCfg().Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}

	logConfig := logger.LogConfig{
		LogPath:  cfg.LogPath,
		LogLevel: cfg.LogLevel,
	}
	if err := logger.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}

	eng, err := engine.NewEngine(cfg)
	if err != nil {
		logger.Errorf("initializing engine: %v", err)
		os.Exit(1)
	}
	d := dispatcher.NewQueryDispatcher(eng)

	fmt.Print(banner)
	logger.Infof("engine ready: data_dir=%s block_size=%dKB pool_capacity=%d",
		cfg.DataDir, cfg.BlockSizeKB, cfg.PoolCapacity)

	if serve {
		net.NewRAServer(cfg, d).Start()
		return
	}
	if err := session.NewRepl(d, os.Stdin, os.Stdout).Run(); err != nil {
		logger.Errorf("shell terminated: %v", err)
		os.Exit(1)
	}
}
