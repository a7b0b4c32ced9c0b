package upload

import (
	"time"

	"github.com/blaubaer/sound-detect/pkg/common"
)

func NewConfiguration() Configuration {
	return Configuration{
		BaseUrl:   "http://localhost:5000/v1/",
		Path:      "sounddetect",
		FieldName: "audio",
		Timeout:   30 * time.Second,
	}
}

type Configuration struct {
	BaseUrl   string        `yaml:"baseUrl,omitempty"`
	Path      string        `yaml:"path,omitempty"`
	FieldName string        `yaml:"fieldName,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("upload.baseUrl", "Base URL of the sound detection service.").
		Envar("SD_UPLOAD_BASE_URL").
		StringVar(&this.BaseUrl)
	using.Flag("upload.path", "Path relative to the base URL recordings are posted to.").
		Envar("SD_UPLOAD_PATH").
		StringVar(&this.Path)
	using.Flag("upload.fieldName", "Name of the multipart field which carries the recording.").
		Envar("SD_UPLOAD_FIELD_NAME").
		StringVar(&this.FieldName)
	using.Flag("upload.timeout", "Maximum time an upload may take, including reading the response.").
		Envar("SD_UPLOAD_TIMEOUT").
		DurationVar(&this.Timeout)
}
