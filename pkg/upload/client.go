package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/go-resty/resty/v2"

	"github.com/blaubaer/sound-detect/pkg/audio"
)

// Result is whatever the endpoint answered. The client itself does not
// interpret status codes.
type Result struct {
	StatusCode int
	Body       []byte
}

type Client struct {
	conf Configuration
	// DefaultContainerFormat is used if the container format cannot be
	// derived from the file extension.
	DefaultContainerFormat audio.ContainerFormat

	client *resty.Client
}

func New(conf Configuration, defaultContainerFormat audio.ContainerFormat) *Client {
	if conf.Timeout <= 0 {
		conf.Timeout = 30 * time.Second
	}
	if conf.FieldName == "" {
		conf.FieldName = "audio"
	}
	client := resty.New().
		SetBaseURL(conf.BaseUrl).
		SetTimeout(conf.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		conf:                   conf,
		DefaultContainerFormat: defaultContainerFormat,
		client:                 client,
	}
}

func (this *Client) Url() string {
	return this.client.BaseURL + "/" + this.conf.Path
}

func (this *Client) Upload(ctx context.Context, location string) (Result, error) {
	fail := func(err error) (Result, error) {
		return Result{}, &TransportError{this.Url(), err}
	}

	f, err := os.Open(location)
	if err != nil {
		return fail(err)
	}
	defer func() {
		_ = f.Close()
	}()

	cf := this.containerFormatOf(location)
	logger := log.With("file", location).
		With("url", this.Url()).
		With("mimeType", cf.MimeType())
	logger.Debug("Uploading recording...")

	start := time.Now()
	rsp, err := this.client.R().
		SetContext(ctx).
		SetMultipartFields(&resty.MultipartField{
			Param:       this.conf.FieldName,
			FileName:    filepath.Base(location),
			ContentType: cf.MimeType(),
			Reader:      f,
		}).
		Post(this.conf.Path)
	if err != nil {
		return fail(fmt.Errorf("request failed after %v: %w", time.Since(start), err))
	}

	logger.With("status", rsp.StatusCode()).
		With("duration", time.Since(start)).
		Debug("Recording uploaded.")

	return Result{
		StatusCode: rsp.StatusCode(),
		Body:       rsp.Body(),
	}, nil
}

func (this *Client) containerFormatOf(location string) audio.ContainerFormat {
	var result audio.ContainerFormat
	if err := result.Set(filepath.Ext(location)); err != nil {
		return this.DefaultContainerFormat
	}
	return result
}
