package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"netpong/internal/ansii"
	"netpong/internal/client"
	"netpong/internal/config"
	"netpong/internal/netwrk"
	"netpong/internal/pong"
	"netpong/internal/renderer"
)

// usage: client [host] [port] [name]
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, ansii.Colors.Red+ansii.ANSI(err.Error())+ansii.Styles.Reset)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(os.Getenv("PONG_CONFIG"))
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	host, port, name := "127.0.0.1", cfg.Port, ""
	if len(args) > 0 {
		host = args[0]
	}
	if len(args) > 1 {
		if port, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid port %q", args[1])
		}
	}
	if len(args) > 2 {
		name = args[2]
	}
	if name, err = askName(name, os.Stdin, os.Stdout); err != nil {
		return err
	}

	codec, err := netwrk.CodecByName(cfg.PayloadCodec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Welcome to pong!")
	c, err := netwrk.Dial(ctx, net.JoinHostPort(host, strconv.Itoa(port)), name, codec)
	if err != nil {
		return err
	}
	defer c.Close()

	if ansii.IsTerminal() {
		prev, err := ansii.MakeTermRaw()
		if err != nil {
			return fmt.Errorf("make terminal raw: %w", err)
		}
		defer ansii.RestoreTerm(prev)
		os.Stdout.WriteString(string(ansii.Screen.HideCursor))
		defer os.Stdout.WriteString(string(ansii.Screen.ShowCursor + ansii.Screen.ClearScreen + ansii.Screen.CursorHome))
	}

	client.Attach(c, renderer.New(os.Stdout, pong.DefaultGeometry, nil))
	return client.Game(ctx, c, os.Stdin)
}

// setupLogging sends logs to PONG_CLIENT_LOG so they never land on the game screen.
func setupLogging(level int) (func(), error) {
	var out io.Writer = io.Discard
	closeFn := func() {}
	if path := os.Getenv("PONG_CLIENT_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open client log: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.Level(level)})))
	return closeFn, nil
}

func askName(name string, in io.Reader, out io.Writer) (string, error) {
	if valid, err := client.ValidName(name); err == nil {
		return valid, nil
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintln(out, "Please enter your name")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		valid, err := client.ValidName(scanner.Text())
		if err == nil {
			return valid, nil
		}
		fmt.Fprintln(out, ansii.Colors.Red, err, ansii.Styles.Reset)
	}
}
