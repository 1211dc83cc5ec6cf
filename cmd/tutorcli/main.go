// Command tutorcli runs one tutoring session in the terminal.
//
//	:restart  start over
//	:retry    regenerate a missing tutor reply
//	:quit     exit
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"verbtutor/internal/gateway/app"
	"verbtutor/internal/gateway/config"
	"verbtutor/internal/logger"
	"verbtutor/internal/presenter"
	"verbtutor/internal/tutor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	if os.Getenv("LOG_LEVEL") == "" {
		lg = logger.Nop()
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctrl, gen, err := app.NewController(ctx, cfg, lg)
	if err != nil {
		log.Fatal(err)
	}
	defer gen.Close()

	p := presenter.New(tutor.NewSession("cli", ctrl, lg), lg)
	shown := render(p.OnRestart(ctx), 0)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		var v presenter.View
		switch line {
		case ":quit", ":q":
			return
		case ":restart":
			shown = 0
			v = p.OnRestart(ctx)
		case ":retry":
			v = p.OnRetry(ctx)
		default:
			v = p.OnLearnerSubmit(ctx, line)
		}
		if ctx.Err() != nil {
			return
		}
		shown = render(v, shown)
	}
}

// render prints the turns after the first shown and returns the new count.
func render(v presenter.View, shown int) int {
	if shown > len(v.Turns) {
		shown = 0
	}
	for _, l := range v.Turns[shown:] {
		if l.Speaker == "tutor" {
			fmt.Printf("\n%s\n\n", l.Text)
		}
	}
	if v.Notice != "" {
		fmt.Printf("[%s]\n", v.Notice)
	}
	if v.Input != "" {
		fmt.Printf("(not sent: %q)\n", v.Input)
	}
	return len(v.Turns)
}
