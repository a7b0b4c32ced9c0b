package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	log "github.com/echocat/slf4g"

	"github.com/blaubaer/sound-detect/pkg/audio"
	"github.com/blaubaer/sound-detect/pkg/session"
	"github.com/blaubaer/sound-detect/pkg/signal"
)

// Controller is the part of the session the console drives.
type Controller interface {
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	Play(ctx context.Context) error
	PauseOrResume(ctx context.Context) error
	Stop(ctx context.Context) error
	Upload(ctx context.Context) (session.UploadResult, error)
	Snapshot() session.Snapshot
	OnChange(fn func(session.Snapshot))
	OnResult(fn func(session.UploadResult))
}

type prompter interface {
	SetPrompt(string)
	Refresh()
}

// Console is an interactive terminal on top of a Controller.
type Console struct {
	Controller Controller
	// Devices is optional; without it the devices command is not available.
	Devices func() (audio.Devices, error)
	// Logs is optional; without it the logs command is not available.
	Logs io.WriterTo

	Stdin  io.ReadCloser
	Stdout io.Writer

	mutex    sync.Mutex
	out      io.Writer
	prompter prompter
	loading  bool
	stopping bool
	last     session.Snapshot
}

func (this *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt(this.Controller.Snapshot(), false),
		AutoComplete:    this.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           this.stdin(),
		Stdout:          this.stdout(),
	})
	if err != nil {
		return fmt.Errorf("cannot create console: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	this.attach(rl.Stdout(), rl)
	defer this.attach(this.stdout(), nil)

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	this.println(`Type "help" for the available commands.`)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cannot read from console: %w", err)
		}

		quit, err := this.Execute(ctx, line)
		if err != nil {
			log.WithError(err).
				With("command", line).
				Debug("Command failed.")
			this.printf("Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Attach subscribes the console to the changes of its Controller. Run
// does this on its own.
func (this *Console) Attach() {
	this.attach(this.stdout(), nil)
}

func (this *Console) attach(out io.Writer, p prompter) {
	s := this.Controller.Snapshot()

	this.mutex.Lock()
	subscribe := this.out == nil
	this.out = out
	this.prompter = p
	this.last = s
	this.mutex.Unlock()

	if subscribe {
		this.Controller.OnChange(this.onChange)
		this.Controller.OnResult(this.onResult)
	}
}

// Ensure renders the loading overlay. It makes the console usable as a
// signal.Signal. It is called while the session is busy and must not call
// back into the Controller.
func (this *Console) Ensure(state signal.State) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	this.loading = state == signal.StateVisible
	if this.loading {
		this.printlnUnlocked("Loading...")
	}
	this.refreshPromptUnlocked(this.last)
	return nil
}

func (this *Console) onChange(s session.Snapshot) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.last.Status == session.StatusPlaying && s.Status == session.StatusRecorded && !this.stopping {
		this.printlnUnlocked("Playback finished.")
	}
	this.last = s
	this.refreshPromptUnlocked(s)
}

func (this *Console) onResult(r session.UploadResult) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	this.printlnUnlocked("Sound Prediction Results: " + PresentResult(r))
}

// Execute runs one command line. quit is true if the user asked to leave.
func (this *Console) Execute(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "record":
		return false, this.toggleRecording(ctx)
	case "play":
		return false, this.Controller.Play(ctx)
	case "pause", "resume":
		return false, this.Controller.PauseOrResume(ctx)
	case "stop":
		return false, this.stop(ctx)
	case "upload":
		_, err := this.Controller.Upload(ctx)
		return false, err
	case "status":
		this.printf("%s", Render(this.Controller.Snapshot()))
		return false, nil
	case "devices":
		return false, this.printDevices()
	case "logs":
		return false, this.printLogs()
	case "help":
		this.printHelp()
		return false, nil
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, try \"help\"", cmd)
	}
}

func (this *Console) toggleRecording(ctx context.Context) error {
	if this.Controller.Snapshot().Status == session.StatusRecording {
		if err := this.Controller.StopRecording(ctx); err != nil {
			return err
		}
		if s := this.Controller.Snapshot(); s.HasFile() {
			this.printf("Audio file saved to %s\n", s.FileLocation)
		}
		return nil
	}
	return this.Controller.StartRecording(ctx)
}

// stop marks the playback end as requested, so onChange does not report
// it as finished.
func (this *Console) stop(ctx context.Context) error {
	this.setStopping(true)
	defer this.setStopping(false)
	return this.Controller.Stop(ctx)
}

func (this *Console) setStopping(v bool) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.stopping = v
}

func (this *Console) printDevices() error {
	if this.Devices == nil {
		return errors.New("device listing is not available")
	}
	devices, err := this.Devices()
	if err != nil {
		return err
	}
	if devices.IsZero() {
		this.println("No audio devices found.")
		return nil
	}
	for _, d := range devices {
		this.printf("%s\n", d)
	}
	return nil
}

func (this *Console) printLogs() error {
	if this.Logs == nil {
		return errors.New("log history is not available")
	}
	this.mutex.Lock()
	defer this.mutex.Unlock()
	_, err := this.Logs.WriteTo(this.outUnlocked())
	return err
}

func (this *Console) printHelp() {
	var buf strings.Builder
	buf.WriteString("Commands:\n")
	for _, c := range commands {
		_, _ = fmt.Fprintf(&buf, "  %-8s %s\n", c.Command, c.Description)
	}
	buf.WriteString("Currently available:")
	for _, a := range Actions(this.Controller.Snapshot()) {
		_, _ = fmt.Fprintf(&buf, " %s", a.Command)
	}
	buf.WriteString("\n")
	this.printf("%s", buf.String())
}

var commands = []Action{
	{"record", "Start or stop a recording."},
	{"play", "Play the last recording."},
	{"pause", "Pause or resume the playback."},
	{"stop", "Stop the playback."},
	{"upload", "Identify the last recording."},
	{"status", "Show the current state."},
	{"devices", "List the audio devices."},
	{"logs", "Show the recent log messages."},
	{"help", "Show this help."},
	{"quit", "Leave."},
}

func (this *Console) completer() readline.AutoCompleter {
	items := make([]readline.PrefixCompleterInterface, len(commands))
	for i, c := range commands {
		items[i] = readline.PcItem(c.Command)
	}
	return readline.NewPrefixCompleter(items...)
}

func (this *Console) refreshPromptUnlocked(s session.Snapshot) {
	if p := this.prompter; p != nil {
		p.SetPrompt(Prompt(s, this.loading))
		p.Refresh()
	}
}

func (this *Console) printf(format string, args ...any) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	_, _ = fmt.Fprintf(this.outUnlocked(), format, args...)
}

func (this *Console) println(line string) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.printlnUnlocked(line)
}

func (this *Console) printlnUnlocked(line string) {
	_, _ = fmt.Fprintln(this.outUnlocked(), line)
}

func (this *Console) outUnlocked() io.Writer {
	if v := this.out; v != nil {
		return v
	}
	return this.stdout()
}

func (this *Console) stdin() io.ReadCloser {
	if v := this.Stdin; v != nil {
		return v
	}
	return os.Stdin
}

func (this *Console) stdout() io.Writer {
	if v := this.Stdout; v != nil {
		return v
	}
	return os.Stdout
}
