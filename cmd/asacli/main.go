// asacli 连接一台 ASA，打印会话身份并顺序执行命令。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sshcollectorpro/netdev/pkg/logger"
	"github.com/sshcollectorpro/netdev/pkg/netdev/cisco/asa"
	"github.com/sshcollectorpro/netdev/pkg/ssh"
)

var version = "1.0.0"

// options 命令行参数
type options struct {
	host           string
	port           int
	username       string
	password       string
	enablePassword string
	context        string
	commands       []string
	timeout        time.Duration
	yaml           bool
	verbose        bool
}

// report YAML 输出结构
type report struct {
	Host         string          `yaml:"host"`
	State        string          `yaml:"state"`
	FailedStep   string          `yaml:"failed_step,omitempty"`
	Error        string          `yaml:"error,omitempty"`
	BasePrompt   string          `yaml:"base_prompt,omitempty"`
	BasePattern  string          `yaml:"base_pattern,omitempty"`
	Context      string          `yaml:"context,omitempty"`
	MultipleMode bool            `yaml:"multiple_mode"`
	Commands     []commandReport `yaml:"commands,omitempty"`
}

type commandReport struct {
	Command string `yaml:"command"`
	Context string `yaml:"context"`
	Output  string `yaml:"output"`
	Error   string `yaml:"error,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "asacli:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var o options
	fs := flag.NewFlagSet("asacli", flag.ContinueOnError)
	fs.StringVarP(&o.host, "host", "H", "", "device address")
	fs.IntVarP(&o.port, "port", "p", 22, "SSH port")
	fs.StringVarP(&o.username, "username", "u", "", "login user")
	fs.StringVarP(&o.password, "password", "P", os.Getenv("ASA_PASSWORD"), "login password (default $ASA_PASSWORD)")
	fs.StringVarP(&o.enablePassword, "enable", "e", os.Getenv("ASA_ENABLE"), "enable secret (default $ASA_ENABLE)")
	fs.StringVar(&o.context, "context", "", "change to this security context before running commands")
	fs.StringArrayVarP(&o.commands, "command", "c", nil, "command to run (repeatable)")
	fs.DurationVarP(&o.timeout, "timeout", "t", 30*time.Second, "per-command timeout")
	fs.BoolVar(&o.yaml, "yaml", false, "print a YAML report")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log session events to stderr")
	var showVersion bool
	fs.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Fprintf(out, "asacli %s\n", version)
		return nil
	}
	if o.host == "" || o.username == "" {
		return errors.New("--host and --username are required")
	}
	o.commands = append(o.commands, fs.Args()...)

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Format: "text", Output: "stderr"}); err != nil {
		return err
	}

	shell := ssh.NewShell(ssh.NewClient(&ssh.Config{Timeout: 10 * time.Second}), &ssh.ConnectionInfo{
		Host:     o.host,
		Port:     o.port,
		Username: o.username,
		Password: o.password,
	}, ssh.ShellOptions{
		Commands:       asa.DefaultCatalog(),
		EnableSecret:   o.enablePassword,
		CommandTimeout: o.timeout,
	})
	sess := asa.NewSession(shell, asa.WithHost(o.host), asa.WithEventSink(logger.NewEventSink(nil)))
	defer sess.Close()

	rep := report{Host: o.host}
	err := execute(ctx, sess, o, &rep)
	rep.State = sess.State().String()
	rep.FailedStep = sess.FailedStep()
	if err != nil {
		rep.Error = err.Error()
	}

	if o.yaml {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if encErr := enc.Encode(rep); encErr != nil {
			return encErr
		}
		if encErr := enc.Close(); encErr != nil {
			return encErr
		}
	} else {
		printText(out, rep)
	}
	return err
}

func execute(ctx context.Context, sess *asa.Session, o options, rep *report) error {
	if err := sess.Connect(ctx); err != nil {
		return fmt.Errorf("connect (%s): %w", sess.FailedStep(), err)
	}
	fill := func() {
		rep.BasePrompt = sess.BasePrompt()
		rep.BasePattern = sess.BasePattern()
		rep.Context = sess.CurrentContext()
		rep.MultipleMode = sess.MultipleMode()
	}
	fill()

	if o.context != "" {
		if _, err := sess.ChangeContext(ctx, o.context); err != nil {
			return err
		}
		fill()
	}

	for _, cmd := range o.commands {
		output, err := sess.SendCommand(ctx, cmd)
		cr := commandReport{Command: cmd, Context: sess.CurrentContext(), Output: output}
		if err != nil {
			cr.Error = err.Error()
		}
		rep.Commands = append(rep.Commands, cr)
		fill()
		if err != nil {
			return err
		}
	}
	return nil
}

func printText(out io.Writer, rep report) {
	fmt.Fprintf(out, "host:          %s\n", rep.Host)
	fmt.Fprintf(out, "state:         %s\n", rep.State)
	if rep.FailedStep != "" {
		fmt.Fprintf(out, "failed step:   %s\n", rep.FailedStep)
	}
	if rep.BasePrompt != "" {
		fmt.Fprintf(out, "base prompt:   %s\n", rep.BasePrompt)
		fmt.Fprintf(out, "context:       %s\n", rep.Context)
		fmt.Fprintf(out, "multiple mode: %t\n", rep.MultipleMode)
	}
	for _, c := range rep.Commands {
		fmt.Fprintf(out, "\n[%s] %s\n", c.Context, c.Command)
		if c.Output != "" {
			fmt.Fprintln(out, c.Output)
		}
		if c.Error != "" {
			fmt.Fprintf(out, "error: %s\n", c.Error)
		}
	}
}
