// Package config loads companion settings from a .env file, COMPANION_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Speech backend modes.
const (
	TTSAuto    = "auto"
	TTSCommand = "command"
	TTSRemote  = "remote"
	TTSNone    = "none"

	STTRemote = "remote"
	STTNone   = "none"
)

// DefaultEnvFile is read when present.
const DefaultEnvFile = ".env"

// ErrHeadlessNeedsDashboard is returned for -no-tui without -dashboard.
var ErrHeadlessNeedsDashboard = errors.New("config: headless mode requires the dashboard")

// Config holds runtime settings for the companion binary.
type Config struct {
	LogLevel string `env:"COMPANION_LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	LogFile  string `env:"COMPANION_LOG_FILE,default=companion.log"`

	// Dashboard
	Dashboard bool   `env:"COMPANION_DASHBOARD,default=false"`
	Host      string `env:"COMPANION_HOST,default=127.0.0.1" validate:"required"`
	Port      int    `env:"COMPANION_PORT,default=8088" validate:"min=1,max=65535"`

	// Session
	ResponseDelay time.Duration `env:"COMPANION_RESPONSE_DELAY,default=1s" validate:"min=0"`

	// Speech
	Language   string `env:"COMPANION_LANGUAGE,default=en-US" validate:"required"`
	TTS        string `env:"COMPANION_TTS,default=auto" validate:"oneof=auto command remote none"`
	TTSCommand string `env:"COMPANION_TTS_COMMAND"`
	STT        string `env:"COMPANION_STT,default=remote" validate:"oneof=remote none"`

	// Headless runs the dashboard without the terminal UI.
	Headless bool `env:"COMPANION_HEADLESS,default=false"`
}

// Addr returns the dashboard listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Headless && !c.Dashboard {
		return ErrHeadlessNeedsDashboard
	}
	return nil
}

// flagValues holds the command line flags before they are applied.
type flagValues struct {
	envFile    *string
	debug      *bool
	logFile    *string
	dashboard  *bool
	host       *string
	port       *int
	delay      *time.Duration
	language   *string
	ttsMode    *string
	ttsCommand *string
	sttMode    *string
	noTUI      *bool
}

func newFlagSet() (*flag.FlagSet, *flagValues) {
	fset := flag.NewFlagSet("companion", flag.ContinueOnError)
	fset.SetOutput(io.Discard)

	return fset, &flagValues{
		envFile:    fset.String("env-file", DefaultEnvFile, "Optional .env file"),
		debug:      fset.Bool("debug", false, "Enable verbose debug logging"),
		logFile:    fset.String("log-file", "", "Log file used while the terminal UI is active"),
		dashboard:  fset.Bool("dashboard", false, "Serve the local dashboard"),
		host:       fset.String("host", "", "Dashboard host"),
		port:       fset.Int("port", 0, "Dashboard port"),
		delay:      fset.Duration("delay", 0, "Simulated response delay"),
		language:   fset.String("lang", "", "Recognition and speech language (BCP 47 tag)"),
		ttsMode:    fset.String("tts", "", "Speech synthesis: auto, command, remote, none"),
		ttsCommand: fset.String("tts-command", "", "Speech command for -tts=command (say, espeak-ng, espeak)"),
		sttMode:    fset.String("stt", "", "Speech recognition: remote, none"),
		noTUI:      fset.Bool("no-tui", false, "Run headless with the dashboard only"),
	}
}

// PrintUsage writes the flag reference to w.
func PrintUsage(w io.Writer) {
	fset, _ := newFlagSet()
	fset.SetOutput(w)
	fmt.Fprintln(w, "Usage: companion [flags]")
	fset.PrintDefaults()
}

// Load builds the configuration for args (without the program name).
// It returns an error wrapping flag.ErrHelp for -h and -help.
func Load(args []string) (*Config, error) {
	fset, fv := newFlagSet()
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("config: flags: %w", err)
	}

	es, err := environment(*fv.envFile)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			if *fv.debug {
				cfg.LogLevel = "debug"
			}
		case "log-file":
			cfg.LogFile = *fv.logFile
		case "dashboard":
			cfg.Dashboard = *fv.dashboard
		case "host":
			cfg.Host = *fv.host
		case "port":
			cfg.Port = *fv.port
		case "delay":
			cfg.ResponseDelay = *fv.delay
		case "lang":
			cfg.Language = *fv.language
		case "tts":
			cfg.TTS = *fv.ttsMode
		case "tts-command":
			cfg.TTSCommand = *fv.ttsCommand
		case "stt":
			cfg.STT = *fv.sttMode
		case "no-tui":
			cfg.Headless = *fv.noTUI
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// environment merges the process environment over the .env file. A missing
// file is not an error.
func environment(envFile string) (env.EnvSet, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if envFile == "" {
		return es, nil
	}

	values, err := godotenv.Read(envFile)
	if errors.Is(err, fs.ErrNotExist) {
		return es, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", envFile, err)
	}
	for k, v := range values {
		if _, ok := es[k]; !ok {
			es[k] = v
		}
	}
	return es, nil
}
