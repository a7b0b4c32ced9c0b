package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/blaubaer/sound-detect/pkg/audio"
	"github.com/blaubaer/sound-detect/pkg/common"
	"github.com/blaubaer/sound-detect/pkg/session"
	"github.com/blaubaer/sound-detect/pkg/staging"
	"github.com/blaubaer/sound-detect/pkg/upload"
)

func NewConfiguration() Configuration {
	return Configuration{
		false,

		session.NewConfiguration(),
		audio.NewConfiguration(),
		staging.NewConfiguration(),
		upload.NewConfiguration(),
	}
}

type Configuration struct {
	PreventAutoSave bool `yaml:"preventAutoSave"`

	Session session.Configuration `yaml:"session,omitempty"`
	Audio   audio.Configuration   `yaml:"audio,omitempty"`
	Staging staging.Configuration `yaml:"staging,omitempty"`
	Upload  upload.Configuration  `yaml:"upload,omitempty"`
}

// SetupConfiguration registers the flags of all nested configurations.
// preventAutoSave is registered by App, because it has to be applied even
// if it is explicitly set to false.
func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	this.Session.SetupConfiguration(using)
	this.Audio.SetupConfiguration(using)
	this.Staging.SetupConfiguration(using)
	this.Upload.SetupConfiguration(using)
}

func (this Configuration) Validate() error {
	if err := this.Audio.Validate(); err != nil {
		return fmt.Errorf("illegal audio configuration: %w", err)
	}
	if this.Upload.BaseUrl == "" {
		return errors.New("illegal upload configuration: empty base URL")
	}
	if this.Staging.Directory == "" {
		return errors.New("illegal staging configuration: empty directory")
	}
	return nil
}

func (this *Configuration) loadFrom(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(this); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (this *Configuration) loadFromFile(fn string, ignoreNotFound bool) error {
	f, err := os.Open(fn)
	if os.IsNotExist(err) && ignoreNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := this.loadFrom(f); err != nil {
		return fmt.Errorf("cannot load configuration file %q: %w", fn, err)
	}

	return nil
}

func (this *Configuration) saveTo(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(this)
}

func (this *Configuration) saveToFile(fn string) error {
	_ = os.MkdirAll(filepath.Dir(fn), 0700)

	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := this.saveTo(f); err != nil {
		return fmt.Errorf("cannot write file %q: %w", fn, err)
	}

	return nil
}
