package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"tutorly/internal/config"
	"tutorly/internal/providers/tutorly"
	"tutorly/internal/routes"
	"tutorly/internal/session"
	"tutorly/internal/storage"
	"tutorly/internal/views"
)

var (
	errUsage         = errors.New("usage")
	errLoginRequired = errors.New("login required")
	errSilent        = errors.New("failed")
)

type env struct {
	cfg    config.Config
	kv     storage.KV
	client *tutorly.Client
	app    *views.App
	nav    *terminalNav
	out    io.Writer
}

// terminalNav records navigations and tells the user when they have to log in.
type terminalNav struct {
	*routes.History
	out io.Writer
}

func (n *terminalNav) Navigate(path string) {
	n.History.Navigate(path)
	if path == routes.PathLogin {
		fmt.Fprintln(n.out, "Please log in: tutorly login -u <username> -p <password>")
	}
}

func newEnv(cfg config.Config, kv storage.KV, out io.Writer) *env {
	sess := session.New(kv)
	client := tutorly.New(cfg.APIURL, sess)
	if cfg.HTTPTimeout > 0 {
		client.HTTP.Timeout = cfg.HTTPTimeout
	}

	nav := &terminalNav{History: routes.NewHistory(routes.PathHome), out: out}
	return &env{
		cfg:    cfg,
		kv:     kv,
		client: client,
		app:    views.NewApp(client, sess, nav),
		nav:    nav,
		out:    out,
	}
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Load()

	kv, err := storage.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		log.Printf("ERROR: open session store: %v", err)
		return 1
	}
	defer kv.Close()

	err = run(ctx, newEnv(cfg, kv, os.Stdout), os.Args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		return 2
	case errors.Is(err, errLoginRequired), errors.Is(err, errSilent):
		return 1
	default:
		log.Printf("ERROR: %v", err)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: tutorly <command> [flags]

commands:
  login -u <user> -p <password>
  register -u <user> -e <email> -p <password>
  logout
  courses [-q text] [-min-rating n] [-category name]
  course <id>
  toggle <id> <topic>...
  enroll <id>
  rate <id> -r <1-5> [-m text]
  profile [-username name] [-email addr]
  passwd -old <password> -new <password>
  recommend
  export [-out path] [-format csv|xlsx|xml] [-workers n] [-sftp] [-every 1h]
  shell
`)
}
