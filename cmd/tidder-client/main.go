package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tidder/internal/config"
	"tidder/internal/ui"
	"tidder/internal/ui/page"
	"tidder/internal/util"
	"tidder/pkg/tidder"
)

func main() {
	cfg, err := config.Load(config.Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) > 1 {
		cfg.Client.APIURL = os.Args[1]
	}

	logFile, err := util.OpenLogFile(os.TempDir(), "tidder-client")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLoggerTo(logFile, cfg.Logging.Level, "text")
	util.SetDefault(logger)
	logger.Info("tidder client starting", "api", cfg.Client.APIURL)

	client := tidder.NewClient(cfg.Client.APIURL, tidder.WithTimeout(cfg.Client.RequestTimeout))
	app := ui.New(client, page.Options{
		PollInterval: cfg.Client.PollInterval,
		Timeout:      cfg.Client.RequestTimeout,
		ListLimit:    cfg.Client.ListLimit,
		Log:          logger,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
