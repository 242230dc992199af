package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"time"

	"pulse/config"
	"pulse/engine"
	"pulse/graph"
	"pulse/log"
	"pulse/player"
	"pulse/portaudio"
)

type playCommand struct {
	configPath string
	loop       bool
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play an audio file (wav/aiff/mp3/ogg) on the default device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.configPath, "config", "", "path to yaml engine config")
	fs.BoolVar(&cmd.loop, "loop", false, "loop playback until interrupted")
}

func (cmd *playCommand) Run(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: pulse play [flags] <file>")
	}
	cfg, err := loadConfig(cmd.configPath)
	if err != nil {
		return err
	}

	p, err := player.Load(args[0])
	if err != nil {
		return err
	}
	p.SetLoop(cmd.loop)
	// play at the source rate, not the configured one
	cfg.SampleRate = p.Rate()

	e := engine.New(cfg, engine.WithLogger(log.GetLogger()))
	for ch := 0; ch < int(cfg.NumChannels); ch++ {
		e.Graph().AddToRoot(p, graph.AudioRate, uint32(ch))
	}
	e.Buffers().RegisterSink(graph.AudioBackend, portaudio.NewSink())

	if err := e.Start(); err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-interrupt:
			return e.Stop()
		case <-ticker.C:
			if p.Done() {
				return e.Stop()
			}
		}
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
