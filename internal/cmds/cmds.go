// Package cmds builds the cobra commands behind the dicomcat, dicomdump and
// dicomtree binaries. Every command writes only to the writers it is
// constructed with.
package cmds

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"dicomcat/pkg/config"
	"dicomcat/pkg/logging"
)

// Exit codes returned by Main.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = -1
)

// UsageError reports a bad invocation. Message is printed as is.
type UsageError struct {
	ExitCode int
	Message  string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usageErrorf(code int, format string, args ...interface{}) *UsageError {
	return &UsageError{ExitCode: code, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error returned by a command to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return usageErr.ExitCode
	}
	return ExitFailure
}

// Main executes cmd with args and prints a failure to stderr. It returns the
// exit status for the process.
func Main(cmd *cobra.Command, args []string, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args for nil
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
	}
	return ExitCode(err)
}

// commonOptions are the flags shared by every command that reads the
// configuration.
type commonOptions struct {
	configPath  string
	envFile     string
	logLevel    string
	writeConfig string
}

func (o *commonOptions) bind(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "YAML configuration file.")
	flags.StringVar(&o.envFile, "env-file", ".env", "Optional dotenv file with DICOMCAT_* overrides.")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error.")
	flags.StringVar(&o.writeConfig, "write-config", "", "Write the effective configuration to this YAML file and exit.")
}

// saveConfig handles --write-config. It reports whether the command is done.
func (o *commonOptions) saveConfig(cfg *config.Config, stderr io.Writer) (bool, error) {
	if o.writeConfig == "" {
		return false, nil
	}
	if err := config.SaveConfig(cfg, o.writeConfig); err != nil {
		return true, err
	}
	fmt.Fprintf(stderr, "wrote configuration to %s\n", o.writeConfig)
	return true, nil
}

// load reads the configuration, applies the environment and the log level
// flag, and builds the logger writing to stderr.
func (o *commonOptions) load(flags *pflag.FlagSet, stderr io.Writer) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return nil, nil, err
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	logger, err := logging.New(cfg.Logging.Level, stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newCommand sets up the parts every command shares.
func newCommand(use, short string, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}
