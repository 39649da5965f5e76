package tool

import (
	"flag"

	"github.com/confshare/confshare-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override API port")
	flag.StringVar(&cfg.UseOrigin, "useOrigin", "", "override the deployment origin share links point at")
	flag.StringVar(&cfg.UseStatePath, "useStatePath", "", "override selection state file path")
	flag.IntVar(&cfg.UseMaxLinkLength, "useMaxLinkLength", 0, "override the link length ceiling")
	flag.IntVar(&cfg.UseMaxQRLength, "useMaxQrLength", 0, "override the QR length ceiling")
	flag.BoolVar(&cfg.SkipProbe, "skipProbe", false, "skip MCP host reachability probing before collection")
	flag.Parse()
	return cfg
}
