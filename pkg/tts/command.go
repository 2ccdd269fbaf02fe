package tts

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Command speaks through the operating system's speech command: say on
// macOS, espeak-ng or espeak elsewhere. One process plays at a time; Speak
// and Cancel both kill the running process first.
type Command struct {
	config *Config
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd

	voicesOnce sync.Once
	voices     []Voice
}

// candidateBinaries lists speech commands in preference order for this OS.
func candidateBinaries() []string {
	if runtime.GOOS == "darwin" {
		return []string{"say", "espeak-ng", "espeak"}
	}
	return []string{"espeak-ng", "espeak"}
}

// NewCommand creates a synthesizer around the configured speech command.
func NewCommand(opts ...Option) (*Command, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, WrapError(cfg.Binary, fmt.Errorf("%w: %v", ErrUnavailable, err))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Command{
		config: cfg,
		path:   path,
		logger: logger.With("component", "tts.command", "binary", cfg.Binary),
	}, nil
}

// DetectCommand returns a synthesizer for the first speech command found on
// PATH, or nil when none is installed.
func DetectCommand(opts ...Option) *Command {
	for _, bin := range candidateBinaries() {
		c, err := NewCommand(append(opts, WithBinary(bin))...)
		if err == nil {
			return c
		}
	}
	return nil
}

// Binary returns the speech command name.
func (c *Command) Binary() string {
	return c.config.Binary
}

// Speak kills any running utterance and starts speaking u.
func (c *Command) Speak(u Utterance) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.killLocked()

	cmd := exec.Command(c.path, speakArgs(c.flavor(), u, c.config.BaseWPM)...)
	cmd.Stdin = strings.NewReader(u.Text)
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return WrapError(c.config.Binary, err)
	}
	c.cmd = cmd

	c.logger.Debug("speaking", "chars", len(u.Text), "voice", voiceName(u.Voice))

	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		if c.cmd == cmd {
			c.cmd = nil
		}
		c.mu.Unlock()
		if err != nil && cmd.ProcessState != nil && !cmd.ProcessState.Exited() {
			return // killed by Cancel or a newer Speak
		}
		if err != nil {
			c.logger.Warn("speech command failed", "error", err)
		}
	}()
	return nil
}

// Cancel stops the running utterance, if any.
func (c *Command) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killLocked()
	return nil
}

// Speaking reports whether a speech process is running.
func (c *Command) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmd != nil
}

// Voices lists the command's voices. The list is read once and cached.
func (c *Command) Voices() []Voice {
	c.voicesOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ListTimeout)
		defer cancel()

		flavor := c.flavor()
		out, err := exec.CommandContext(ctx, c.path, listArgs(flavor)...).Output()
		if err != nil {
			c.logger.Warn("failed to list voices", "error", err)
			return
		}
		if flavor == flavorSay {
			c.voices = parseSayVoices(string(out))
		} else {
			c.voices = parseEspeakVoices(string(out))
		}
		c.logger.Debug("voices loaded", "count", len(c.voices))
	})
	return c.voices
}

func (c *Command) killLocked() {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	if err := killProcess(c.cmd); err != nil {
		c.logger.Debug("kill speech process", "error", err)
	}
	c.cmd = nil
}

type commandFlavor int

const (
	flavorEspeak commandFlavor = iota
	flavorSay
)

func (c *Command) flavor() commandFlavor {
	if filepath.Base(c.config.Binary) == "say" {
		return flavorSay
	}
	return flavorEspeak
}

// speakArgs builds the argument list that reads the text from stdin.
func speakArgs(flavor commandFlavor, u Utterance, baseWPM int) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	wpm := strconv.Itoa(int(math.Round(float64(baseWPM) * rate)))

	var args []string
	switch flavor {
	case flavorSay:
		args = append(args, "-r", wpm)
		if u.Voice != nil && u.Voice.Name != "" {
			args = append(args, "-v", u.Voice.Name)
		}
		args = append(args, "-f", "-")
	default:
		args = append(args, "-s", wpm)
		// espeak pitch is 0-99 with 50 neutral; amplitude is 0-200 with 100 neutral.
		args = append(args, "-p", strconv.Itoa(clamp(int(math.Round(50*u.Pitch)), 0, 99)))
		args = append(args, "-a", strconv.Itoa(clamp(int(math.Round(100*u.Volume)), 0, 200)))
		if u.Voice != nil && u.Voice.Name != "" {
			args = append(args, "-v", u.Voice.Name)
		} else if u.Language != "" {
			args = append(args, "-v", strings.ToLower(u.Language))
		}
		args = append(args, "--stdin")
	}
	return args
}

func listArgs(flavor commandFlavor) []string {
	if flavor == flavorSay {
		return []string{"-v", "?"}
	}
	return []string{"--voices"}
}

// parseSayVoices parses `say -v ?` output:
//
//	Samantha            en_US    # Hello, my name is Samantha.
//	Bad News            en_US    # The light you see at the end of the tunnel...
func parseSayVoices(out string) []Voice {
	var voices []Voice
	for _, line := range strings.Split(out, "\n") {
		entry, _, _ := strings.Cut(line, "#")
		fields := strings.Fields(entry)
		if len(fields) < 2 {
			continue
		}
		voices = append(voices, Voice{
			Name:     strings.Join(fields[:len(fields)-1], " "),
			Language: strings.ReplaceAll(fields[len(fields)-1], "_", "-"),
		})
	}
	return voices
}

// parseEspeakVoices parses `espeak --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
func parseEspeakVoices(out string) []Voice {
	var voices []Voice
	for i, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if i == 0 || len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{
			Name:     fields[3],
			Language: fields[1],
		})
	}
	return voices
}

func voiceName(v *Voice) string {
	if v == nil {
		return ""
	}
	return v.Name
}

func clamp(v, low, high int) int {
	return max(low, min(v, high))
}

// Verify Command implements Synthesizer at compile time.
var _ Synthesizer = (*Command)(nil)
