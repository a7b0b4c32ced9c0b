package app

import (
	"context"
	"fmt"
	"os"

	"dario.cat/mergo"
	log "github.com/echocat/slf4g"

	"github.com/blaubaer/sound-detect/pkg/audio"
	"github.com/blaubaer/sound-detect/pkg/common"
	"github.com/blaubaer/sound-detect/pkg/console"
	"github.com/blaubaer/sound-detect/pkg/session"
	"github.com/blaubaer/sound-detect/pkg/signal"
	"github.com/blaubaer/sound-detect/pkg/staging"
	"github.com/blaubaer/sound-detect/pkg/upload"
)

func NewApp() *App {
	return &App{
		config: NewConfiguration(),
	}
}

type App struct {
	AudioStack        audio.Stack
	Loading           signal.Loading
	Console           console.Console
	ConfigurationFile string

	configFromFlags    Configuration
	preventAutoSaveSet bool
	config             Configuration
	session            *session.Session
}

func (this *App) SetupConfiguration(using common.FlagHolder) {
	this.configFromFlags.SetupConfiguration(using)

	using.Flag("preventAutoSave", "If provided configuration will NOT automatically be saved upon changes.").
		Envar("SD_PREVENT_AUTO_SAVE").
		IsSetByUser(&this.preventAutoSaveSet).
		BoolVar(&this.configFromFlags.PreventAutoSave)

	using.Flag("configuration", "Defines the file from which the configuration should be loaded and/or stored to.").
		Short('c').
		Envar("SD_CONFIGURATION").
		StringVar(&this.ConfigurationFile)
}

func (this *App) Run(ctx context.Context) error {
	if this.session == nil {
		return fmt.Errorf("app not initialized")
	}
	log.With("upload", this.config.Upload.BaseUrl).
		With("recordings", this.config.Staging.Directory).
		Info("Ready.")
	return this.Console.Run(ctx)
}

func (this *App) Initialize() (rErr error) {
	success := false
	defer func() {
		if !success {
			if err := this.Dispose(); err != nil && rErr == nil {
				rErr = err
			}
		}
	}()

	if err := this.initializeConfiguration(); err != nil {
		return err
	}

	if err := this.AudioStack.Initialize(this.config.Audio); err != nil {
		return err
	}

	stager := staging.New(this.config.Staging)
	this.session = session.New(this.config.Session, session.Dependencies{
		Capture:      this.AudioStack.Capture(),
		Playback:     this.AudioStack.Playback(),
		Modes:        &this.AudioStack,
		Stager:       stager,
		MediaLibrary: stager,
		Uploader:     upload.New(this.config.Upload, this.config.Audio.ContainerFormat),
		Loading:      &this.Loading,
		Options:      this.config.Audio.EncodingOptions,
	})

	this.Console.Controller = this.session
	this.Console.Devices = this.AudioStack.FindDevices
	this.Loading.Register(&this.Console)

	if err := this.saveConf(false); err != nil {
		return err
	}

	success = true
	return nil
}

func (this *App) initializeConfiguration() error {
	if err := this.config.loadFromFile(this.configurationFile(), true); err != nil {
		return err
	}
	if err := mergo.Merge(&this.config, this.configFromFlags, mergo.WithOverride); err != nil {
		return err
	}
	// mergo does not override with zero values.
	if this.preventAutoSaveSet {
		this.config.PreventAutoSave = this.configFromFlags.PreventAutoSave
	}
	return this.config.Validate()
}

func (this *App) configurationFile() string {
	if v := this.ConfigurationFile; v != "" {
		return v
	}
	return common.DefaultConfigurationFile()
}

func (this *App) saveConf(always bool) error {
	if this.config.PreventAutoSave {
		log.Debug("Automatically save of configuration disabled.")
		return nil
	}

	fn := this.configurationFile()
	if !always {
		_, err := os.Stat(fn)
		if os.IsNotExist(err) {
			log.With("file", fn).Info("Configuration absent.")
			// Ok, we should save...
		} else if err != nil {
			return err
		} else {
			// Does exist, skip...
			return nil
		}
	}

	if err := this.config.saveToFile(fn); err != nil {
		return err
	}

	log.With("file", fn).Info("Configuration saved.")

	return nil
}

func (this *App) Dispose() (rErr error) {
	defer func() {
		if err := this.AudioStack.Dispose(); err != nil && rErr == nil {
			rErr = err
		}
	}()

	if s := this.session; s != nil {
		if err := s.Dispose(); err != nil {
			return fmt.Errorf("cannot dispose session: %w", err)
		}
	}
	return nil
}
