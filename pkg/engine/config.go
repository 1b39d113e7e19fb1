package engine

import "github.com/neuroplastio/mdplug/internal/buildsvc"

// Config points to the converter configuration file, which is the only file
// that is live reloaded.
type Config struct {
	// DataDir holds the render cache. Caching is off when it is empty.
	DataDir string `json:"dataDir"`
	// ConfigFile is the converter configuration. Defaults apply when it does
	// not exist.
	ConfigFile string `json:"configFile"`
	Verbose    bool   `json:"verbose"`

	Build buildsvc.Config `json:"build"`
}
