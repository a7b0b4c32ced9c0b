package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	log "github.com/echocat/slf4g"
	"github.com/google/uuid"

	"github.com/blaubaer/sound-detect/pkg/common"
)

func NewConfiguration() Configuration {
	return Configuration{
		Directory: filepath.Join(common.ApplicationDirectory(), "recordings"),
	}
}

type Configuration struct {
	Directory string `yaml:"directory,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("staging.directory", "Directory where finished recordings are kept.").
		Envar("SD_STAGING_DIRECTORY").
		StringVar(&this.Directory)
}

type StagingError struct {
	Op   string
	Path string
	Err  error
}

func (this *StagingError) Error() string {
	return fmt.Sprintf("cannot %s %q: %v", this.Op, this.Path, this.Err)
}

func (this *StagingError) Unwrap() error {
	return this.Err
}

// Service moves freshly captured recordings out of their transient
// location into Directory. An already staged file is never overwritten.
type Service struct {
	Directory string
}

func New(conf Configuration) *Service {
	return &Service{Directory: conf.Directory}
}

func (this *Service) Stage(_ context.Context, source string) (string, error) {
	if source == "" {
		return "", &StagingError{"stage", source, errors.New("empty source location")}
	}

	if err := this.ensureDirectory(); err != nil {
		return "", err
	}

	target := filepath.Join(this.Directory, filepath.Base(source))
	logger := log.With("source", source).
		With("target", target)

	if _, err := os.Lstat(target); err == nil {
		logger.Info("A file already exists at the destination path. Keeping it.")
		return target, nil
	} else if !os.IsNotExist(err) {
		return "", &StagingError{"inspect", target, err}
	}

	if err := move(source, target); err != nil {
		return "", &StagingError{"move to " + target, source, err}
	}

	logger.Info("Audio file saved.")
	return target, nil
}

// RequestPermission reports whether recordings can be written to Directory.
func (this *Service) RequestPermission(context.Context) (bool, error) {
	if err := this.ensureDirectory(); err != nil {
		log.WithError(err).
			Warn("Recordings directory is not usable.")
		return false, nil
	}

	probe := filepath.Join(this.Directory, ".probe-"+uuid.NewString())
	f, err := os.OpenFile(probe, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		log.WithError(err).
			With("directory", this.Directory).
			Warn("Recordings directory is not writable.")
		return false, nil
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return true, nil
}

func (this *Service) ensureDirectory() error {
	if this.Directory == "" {
		return &StagingError{"create directory", this.Directory, errors.New("no directory configured")}
	}
	fi, err := os.Stat(this.Directory)
	if err == nil {
		if !fi.IsDir() {
			return &StagingError{"create directory", this.Directory, syscall.ENOTDIR}
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return &StagingError{"inspect directory", this.Directory, err}
	}

	log.With("directory", this.Directory).
		Info("Creating directory.")
	if err := os.MkdirAll(this.Directory, 0700); err != nil {
		return &StagingError{"create directory", this.Directory, err}
	}
	return nil
}

func move(source, target string) error {
	err := os.Rename(source, target)
	if err == nil {
		return nil
	}
	if le, ok := common.AsError[*os.LinkError](err); !ok || !errors.Is(le.Err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(source, target); err != nil {
		return err
	}
	return os.Remove(source)
}

func copyFile(source, target string) (rErr error) {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil && rErr == nil {
			rErr = err
		}
		if rErr != nil {
			_ = os.Remove(target)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
