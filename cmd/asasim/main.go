// asasim 启动一台模拟 ASA 设备，供联调与演示使用。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sshcollectorpro/netdev/pkg/logger"
	"github.com/sshcollectorpro/netdev/simulate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "asasim:", err)
		os.Exit(1)
	}
}

// parseConfig 读取 YAML 配置并用显式指定的命令行参数覆盖
func parseConfig(args []string) (simulate.Config, bool, error) {
	fs := flag.NewFlagSet("asasim", flag.ContinueOnError)
	path := fs.StringP("config", "c", "", "simulator YAML config")
	listen := fs.StringP("listen", "l", "", "listen address")
	hostname := fs.String("hostname", "", "device hostname")
	username := fs.StringP("username", "u", "", "login user")
	password := fs.StringP("password", "P", "", "login password")
	secret := fs.StringP("enable", "e", "", "enable secret")
	mode := fs.StringP("mode", "m", "", "security context mode (single|multiple)")
	contexts := fs.StringSlice("contexts", nil, "security contexts (comma separated)")
	loginCtx := fs.String("login-context", "", "context the session starts in")
	outputDir := fs.String("output-dir", "", "directory with canned command outputs")
	dump := fs.Bool("dump", false, "print the effective config as YAML and exit")

	if err := fs.Parse(args); err != nil {
		return simulate.Config{}, false, err
	}

	cfg := simulate.DefaultConfig()
	if *path != "" {
		loaded, err := simulate.LoadConfig(*path)
		if err != nil {
			return cfg, false, err
		}
		cfg = *loaded
	}

	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("listen", &cfg.Listen, *listen)
	set("hostname", &cfg.Hostname, *hostname)
	set("username", &cfg.Username, *username)
	set("password", &cfg.Password, *password)
	set("enable", &cfg.EnableSecret, *secret)
	set("mode", &cfg.Mode, *mode)
	set("login-context", &cfg.LoginContext, *loginCtx)
	set("output-dir", &cfg.OutputDir, *outputDir)
	if fs.Changed("contexts") {
		cfg.Contexts = *contexts
		if !fs.Changed("mode") {
			cfg.Mode = simulate.ModeMultiple
		}
	}
	return cfg, *dump, cfg.Validate()
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, dump, err := parseConfig(args)
	if err != nil {
		return err
	}
	if dump {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	}

	if err := logger.Init(logger.Config{Level: "info", Format: "text", Output: "stderr"}); err != nil {
		return err
	}
	srv, err := simulate.Start(cfg)
	if err != nil {
		return err
	}
	defer srv.Stop()

	logger.WithFields(logrus.Fields{
		"addr":     srv.Addr(),
		"hostname": cfg.Hostname,
		"mode":     cfg.Mode,
		"contexts": cfg.Contexts,
	}).Info("ASA simulator listening")
	fmt.Fprintln(out, srv.Addr())

	<-ctx.Done()
	logger.Info("ASA simulator stopping")
	return nil
}
