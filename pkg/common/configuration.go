package common

import (
	"os"
	"os/user"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
)

const ApplicationName = "sound-detect"

type FlagHolder interface {
	Flag(name, help string) *kingpin.FlagClause
}

// ApplicationDirectory is the per user directory the application keeps its
// configuration and recordings in.
func ApplicationDirectory() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, ApplicationName)
	}

	u, err := user.Current()
	if err != nil {
		return "." + ApplicationName
	}

	return filepath.Join(u.HomeDir, ".config", ApplicationName)
}

func DefaultConfigurationFile() string {
	return filepath.Join(ApplicationDirectory(), "configuration.yml")
}
