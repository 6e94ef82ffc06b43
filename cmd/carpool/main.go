package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/carpool-client/auth"
	"github.com/jrsteele09/carpool-client/internal/config"
	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
)

type command struct {
	name    string
	summary string
	run     func(c config.Config, args []string) error
}

var commands = []command{
	{"login", "log in with email and password", runLogin},
	{"google", "log in with a Google account", runGoogle},
	{"logout", "log out and clear the session", runLogout},
	{"me", "restore the session and show it", runMe},
	{"trips", "list the trips you drive", runTrips},
	{"watch", "log in and print realtime notifications", runWatch},
	{"worker", "serve the app through the worker host", runWorker},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		var loginErr *auth.LoginError
		if carpoolerrors.As(err, &loginErr) {
			fmt.Fprintf(os.Stderr, "login failed: %s\n", loginErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	c := config.New()
	setupLogging(c)

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(c.GetAppName())
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(c, args[1:])
		}
	}
	printUsage(c.GetAppName())
	return fmt.Errorf("unknown command %q", args[0])
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func printUsage(appname string) {
	displayAppname(appname)
	fmt.Println("Usage: carpool <command> [flags]")
	fmt.Println()
	for _, cmd := range commands {
		fmt.Printf("  %-8s %s\n", cmd.name, cmd.summary)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
