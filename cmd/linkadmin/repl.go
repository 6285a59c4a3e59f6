package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tempizhere/linkadmin/internal/dashboard"
	"github.com/tempizhere/linkadmin/internal/view"
	"go.uber.org/zap"
)

const helpText = `Commands:
  refresh                         reload the list of links
  list                            redraw the current page
  new <long> [short] [expiry]     create a link; expiry in seconds or as a duration (1h30m)
  del <short>                     delete a link
  copy <short>                    copy the full short URL to the clipboard
  login [password]                log in; the password is asked for when omitted
  logout                          log out
  help                            show this help
  quit                            exit
`

var (
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("usage")
	errEndOfInput     = errors.New("end of input")
)

// command представляет разобранную строку ввода
type command struct {
	name string
	args []string
}

// parseCommand разбирает строку ввода и проверяет число аргументов
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}
	cmd := command{name: strings.ToLower(fields[0]), args: fields[1:]}
	switch cmd.name {
	case "r":
		cmd.name = "refresh"
	case "ls":
		cmd.name = "list"
	case "rm":
		cmd.name = "del"
	case "exit", "q":
		cmd.name = "quit"
	case "?":
		cmd.name = "help"
	}

	lo, hi := 0, 0
	switch cmd.name {
	case "refresh", "list", "logout", "help", "quit":
	case "new":
		lo, hi = 1, 3
	case "del", "copy":
		lo, hi = 1, 1
	case "login":
		hi = 1
	default:
		return command{}, fmt.Errorf("%w: %s", errUnknownCommand, fields[0])
	}
	if len(cmd.args) < lo || len(cmd.args) > hi {
		return command{}, fmt.Errorf("%w: %s", errUsage, usage(cmd.name))
	}
	return cmd, nil
}

func usage(name string) string {
	for _, line := range strings.Split(helpText, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), name+" ") {
			return strings.TrimSpace(line)
		}
	}
	return name
}

// newLinkForm собирает форму из аргументов команды new
func newLinkForm(args []string) (view.Form, error) {
	form := view.Form{LongURL: dashboard.NormalizeLongURL(args[0])}
	if len(args) > 1 && args[1] != "-" {
		form.ShortURL = args[1]
	}
	if len(args) > 2 {
		delay, err := parseExpiry(args[2])
		if err != nil {
			return view.Form{}, err
		}
		form.ExpiryDelay = delay
	}
	return form, nil
}

// parseExpiry принимает число секунд или длительность вида 1h30m
func parseExpiry(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	return int64(d / time.Second), nil
}

type lineResult struct {
	text string
	eof  bool
}

// lineReader читает строки только по запросу, чтобы чтение пароля не конкурировало со сканером
type lineReader struct {
	scanner *bufio.Scanner
	req     chan struct{}
	resp    chan lineResult
	eof     bool
}

func newLineReader(in io.Reader) *lineReader {
	r := &lineReader{
		scanner: bufio.NewScanner(in),
		req:     make(chan struct{}),
		resp:    make(chan lineResult, 1),
	}
	go r.loop()
	return r
}

func (r *lineReader) loop() {
	for range r.req {
		if !r.scanner.Scan() {
			r.resp <- lineResult{eof: true}
			return
		}
		r.resp <- lineResult{text: r.scanner.Text()}
	}
}

// ReadLine возвращает следующую строку ввода или errEndOfInput
func (r *lineReader) ReadLine(ctx context.Context) (string, error) {
	if r.eof {
		return "", errEndOfInput
	}
	select {
	case r.req <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-r.resp:
		if res.eof {
			r.eof = true
			return "", errEndOfInput
		}
		return res.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// promptConfirmer спрашивает подтверждение в терминале
type promptConfirmer struct {
	ctx   context.Context
	lines *lineReader
	out   io.Writer
}

// Confirm возвращает true только на ответ y или yes
func (c *promptConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	line, err := c.lines.ReadLine(c.ctx)
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// repl читает команды и передаёт их панели
type repl struct {
	dash         *dashboard.Dashboard
	renderer     view.Renderer
	lines        *lineReader
	out          io.Writer
	readPassword func() (string, error)
	logger       *zap.Logger
}

func (r *repl) loop(ctx context.Context) error {
	for {
		fmt.Fprint(r.out, "> ")
		line, err := r.lines.ReadLine(ctx)
		if errors.Is(err, errEndOfInput) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}

		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(r.out, err)
			continue
		}
		if cmd.name == "quit" {
			return nil
		}
		if err := r.execute(ctx, cmd); err != nil {
			r.logger.Debug("Command failed", zap.String("command", cmd.name), zap.Error(err))
			fmt.Fprintln(r.out, "error:", err)
		}
	}
}

func (r *repl) execute(ctx context.Context, cmd command) error {
	switch cmd.name {
	case "":
		return nil
	case "refresh":
		return r.dash.Refresh(ctx)
	case "list":
		r.renderer.Draw(r.dash.Page())
		return nil
	case "help":
		fmt.Fprint(r.out, helpText)
		return nil
	case "new":
		form, err := newLinkForm(cmd.args)
		if err != nil {
			return err
		}
		r.dash.SetForm(form)
		_, err = r.dash.SubmitForm(ctx)
		return err
	case "del":
		return r.dash.DeleteLink(ctx, cmd.args[0])
	case "copy":
		return r.dash.CopyShortURL(ctx, cmd.args[0])
	case "login":
		password, err := r.password(ctx, cmd.args)
		if err != nil {
			return err
		}
		return r.dash.Login(ctx, password)
	case "logout":
		return r.dash.Logout(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd.name)
	}
}

func (r *repl) password(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	r.dash.ShowLogin()
	fmt.Fprint(r.out, "Password: ")
	if r.readPassword != nil {
		return r.readPassword()
	}
	return r.lines.ReadLine(ctx)
}
