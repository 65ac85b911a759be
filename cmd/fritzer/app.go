package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Hussein-Mazeh/fritzer/internal/config"
	"github.com/Hussein-Mazeh/fritzer/internal/fritzbox"
	"github.com/Hussein-Mazeh/fritzer/internal/logger"
	"github.com/Hussein-Mazeh/fritzer/internal/service"
)

const (
	metaConfig = "config"
	metaLogger = "logger"
)

// flagKeys maps global flags onto config keys.
var flagKeys = map[string]string{
	"url":           "url",
	"username":      "username",
	"password-file": "password.file",
	"sid-path":      "store.path",
	"store":         "store.backend",
	"timeout":       "http.timeout",
	"insecure":      "http.insecure",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "fritzer",
		Usage:     "log in to a FRITZ!Box and control its smart switches",
		Version:   cliVersion,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			loginCommand(),
			switchCommand(),
			logoutCommand(),
			versionCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: c.App.ErrWriter,
			})
			logger.SetDefault(log)
			c.App.Metadata = map[string]any{metaConfig: cfg, metaLogger: log}
			return nil
		},
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return userError{msg: err.Error()}
		},
		HideHelpCommand: true,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "url", Usage: "gateway URL (default " + config.DefaultURL + ")"},
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "login user when the gateway flags no default"},
		&cli.StringFlag{Name: "password-file", Usage: "read the gateway password from `FILE`"},
		&cli.StringFlag{Name: "sid-path", Usage: "session cache location for the file and sqlite stores"},
		&cli.StringFlag{Name: "store", Usage: "session cache: file, sqlite, redis, keychain or none"},
		&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout"},
		&cli.BoolFlag{Name: "insecure", Usage: "skip TLS verification (self-signed gateway certificate)"},
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config `FILE`"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-format", Usage: "text or json"},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if !c.IsSet(flag) {
			continue
		}
		switch flag {
		case "timeout":
			overrides[key] = c.Duration(flag).String()
		case "insecure":
			overrides[key] = c.Bool(flag)
		default:
			overrides[key] = c.String(flag)
		}
	}
	return config.Load(c.String("config"), overrides)
}

// withService builds a Service from the loaded config and runs fn with it.
func withService(c *cli.Context, fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, ok := c.App.Metadata[metaConfig].(*config.Config)
	if !ok {
		return errors.New("configuration not loaded")
	}
	log, _ := c.App.Metadata[metaLogger].(logger.Logger)

	creds := newCredentials(cfg.Username, cfg.Password.File, cfg.URL)
	svc, err := service.New(cfg, creds, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := logger.WithLogger(c.Context, log)
	return fn(ctx, svc)
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in, reusing the cached session when still valid",
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc *service.Service) error {
				if err := svc.Connect(ctx); err != nil {
					return err
				}
				sess := svc.Session()
				fmt.Fprintf(c.App.Writer, "logged in to %s via %s\n", svc.Gateway(), sess.Method())
				return nil
			})
		},
	}
}

func switchCommand() *cli.Command {
	return &cli.Command{
		Name:  "switch",
		Usage: "list and control smart switches",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "show every switch with its state",
				Action: func(c *cli.Context) error {
					return withService(c, func(ctx context.Context, svc *service.Service) error {
						list, err := svc.Switches(ctx)
						if err != nil {
							return err
						}
						renderSwitches(c.App.Writer, list)
						return nil
					})
				},
			},
			switchSetCommand("on", true),
			switchSetCommand("off", false),
			{
				Name:      "toggle",
				Usage:     "flip a switch",
				ArgsUsage: "<AIN>",
				Action: func(c *cli.Context) error {
					ain, err := ainArg(c)
					if err != nil {
						return err
					}
					return withService(c, func(ctx context.Context, svc *service.Service) error {
						state, err := svc.ToggleSwitch(ctx, ain)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "%s is now %s\n", ain, state)
						return nil
					})
				},
			},
			{
				Name:      "state",
				Usage:     "print the state of a switch",
				ArgsUsage: "<AIN>",
				Action: func(c *cli.Context) error {
					ain, err := ainArg(c)
					if err != nil {
						return err
					}
					return withService(c, func(ctx context.Context, svc *service.Service) error {
						state, err := svc.SwitchState(ctx, ain)
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, state)
						return nil
					})
				},
			},
		},
	}
}

func switchSetCommand(name string, on bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     "turn a switch " + name,
		ArgsUsage: "<AIN>",
		Action: func(c *cli.Context) error {
			ain, err := ainArg(c)
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *service.Service) error {
				if err := svc.SetSwitch(ctx, ain, on); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s is now %s\n", ain, name)
				return nil
			})
		},
	}
}

// ainArg joins the arguments so "08761 0000434" works unquoted.
func ainArg(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", userError{msg: "missing switch AIN"}
	}
	ain := fritzbox.NormalizeAIN(strings.Join(c.Args().Slice(), ""))
	if ain == "" {
		return "", userError{msg: "missing switch AIN"}
	}
	return ain, nil
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the cached session and clear the cache",
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc *service.Service) error {
				ended, err := svc.Logout(ctx)
				if err != nil {
					return err
				}
				if ended {
					fmt.Fprintf(c.App.Writer, "logged out of %s\n", svc.Gateway())
				} else {
					fmt.Fprintln(c.App.Writer, "no active session")
				}
				return nil
			})
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the version",
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, cliVersion)
			return nil
		},
	}
}
