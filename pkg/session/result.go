package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/sound-detect/pkg/upload"
)

type Outcome uint8

const (
	OutcomeNone    = Outcome(0)
	OutcomeSuccess = Outcome(1)
	OutcomeFailure = Outcome(2)
)

func (this Outcome) String() string {
	switch this {
	case OutcomeNone:
		return "none"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return fmt.Sprintf("illegal-outcome-%d", this)
	}
}

// UploadResult is the outcome of the last upload attempt. Label is only
// set for OutcomeSuccess. StatusCode, Body and Err are kept for
// diagnostics.
type UploadResult struct {
	Outcome    Outcome
	Label      string
	StatusCode int
	Body       []byte
	Err        error
}

func (this UploadResult) Succeeded() bool {
	return this.Outcome == OutcomeSuccess
}

func (this UploadResult) String() string {
	switch this.Outcome {
	case OutcomeSuccess:
		return "success(" + this.Label + ")"
	case OutcomeFailure:
		if this.Err != nil {
			return "failure(" + this.Err.Error() + ")"
		}
		return "failure"
	default:
		return this.Outcome.String()
	}
}

type prediction struct {
	Prediction string `json:"prediction"`
}

func resultOf(location string, rsp upload.Result, err error) UploadResult {
	logger := log.With("file", location)
	fail := func(err error) UploadResult {
		logger.WithError(err).
			Warn("Recording could not be identified.")
		return UploadResult{
			Outcome:    OutcomeFailure,
			StatusCode: rsp.StatusCode,
			Body:       rsp.Body,
			Err:        err,
		}
	}

	if err != nil {
		return fail(err)
	}
	if rsp.StatusCode != http.StatusOK {
		return fail(&upload.ServerError{StatusCode: rsp.StatusCode, Body: string(rsp.Body)})
	}

	var payload prediction
	if err := json.Unmarshal(rsp.Body, &payload); err != nil {
		return fail(fmt.Errorf("cannot decode prediction: %w", err))
	}
	if strings.TrimSpace(payload.Prediction) == "" {
		return fail(errors.New("response does not contain a prediction"))
	}

	logger.With("prediction", payload.Prediction).
		Info("Recording identified.")
	return UploadResult{
		Outcome:    OutcomeSuccess,
		Label:      payload.Prediction,
		StatusCode: rsp.StatusCode,
		Body:       rsp.Body,
	}
}
