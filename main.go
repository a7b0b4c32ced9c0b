package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/echocat/slf4g"
	"github.com/echocat/slf4g/native"
	"github.com/echocat/slf4g/native/consumer"
	"github.com/echocat/slf4g/native/facade/value"
	"github.com/echocat/slf4g/native/formatter"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/blaubaer/sound-detect/pkg/app"
	"github.com/blaubaer/sound-detect/pkg/common"
)

func main() {
	wf := &writerFacade{delegates: []io.Writer{os.Stderr}}
	buf := common.NewRingLineBuffer(2000, 4096)
	buf.TruncateTooLongLines = true
	consumer.Default = consumer.NewWriter(wf)

	lv := value.NewProvider(native.DefaultProvider)
	lv.Consumer.Formatter.Codec = value.MappingFormatterCodec{
		"text": formatter.NewText(func(v *formatter.Text) {
			bv := true
			v.AllowMultiLineMessage = &bv
			v.MultiLineMessageAfterFields = &bv
		}),
		"json": formatter.NewJson(),
	}

	var logFile lumberjack.Logger

	a := app.NewApp()
	a.Console.Logs = buf

	cmd := kingpin.New(os.Args[0], "Records sounds and lets a remote service identify them.").
		Action(func(*kingpin.ParseContext) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			defer func() {
				if err := a.Dispose(); err != nil {
					log.WithError(err).
						Warn("Cannot dispose application.")
				}
			}()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go func() {
				c := make(chan os.Signal, 1)
				signal.Notify(c, syscall.SIGTERM)
				defer signal.Stop(c)
				select {
				case <-c:
					log.Info("Terminated. Going down...")
					cancel()
				case <-ctx.Done():
				}
			}()

			// From now on the terminal belongs to the console.
			if logFile.Filename != "" {
				wf.set([]io.Writer{buf, &logFile})
			} else {
				wf.set([]io.Writer{buf})
			}
			defer wf.set([]io.Writer{os.Stderr}, func(current, next []io.Writer) {
				if logFile.Filename != "" {
					_ = logFile.Close()
				}
			})

			return a.Run(ctx)
		})
	a.SetupConfiguration(cmd)

	cmd.Flag("log.level", "").
		SetValue(lv.Level)
	cmd.Flag("log.format", "").
		Default("text").
		SetValue(lv.Consumer.Formatter)
	cmd.Flag("log.color", "").
		Default("auto").
		SetValue(lv.Consumer.Formatter.ColorMode)
	cmd.Flag("log.file", "If set log messages are additionally written to this file.").
		Envar("SD_LOG_FILE").
		StringVar(&logFile.Filename)
	cmd.Flag("log.file.maxSize", "Maximum size in megabytes of the log file before it gets rotated.").
		Envar("SD_LOG_FILE_MAX_SIZE").
		Default("10").
		IntVar(&logFile.MaxSize)
	cmd.Flag("log.file.maxBackups", "Maximum number of rotated log files to retain.").
		Envar("SD_LOG_FILE_MAX_BACKUPS").
		Default("3").
		IntVar(&logFile.MaxBackups)

	kingpin.MustParse(cmd.Parse(os.Args[1:]))
}

type writerFacade struct {
	delegates []io.Writer
	mutex     sync.RWMutex
}

func (this *writerFacade) Write(p []byte) (n int, err error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	for i, w := range this.delegates {
		var nn int
		if nn, err = w.Write(p); err != nil {
			return n, err
		}
		if i == 0 {
			n = nn
		} else if n != nn {
			return n, fmt.Errorf("the previous writer wrote %d, but the current one wrote %d bytes", nn, n)
		}
	}

	return
}

func (this *writerFacade) set(next []io.Writer, whileChange ...func(current, next []io.Writer)) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	current := this.delegates
	for _, fn := range whileChange {
		fn(current, next)
	}
	this.delegates = next
}
