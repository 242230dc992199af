package main

import (
	"errors"
	"flag"

	"pulse/engine"
	"pulse/gen"
	"pulse/graph"
	"pulse/log"
	"pulse/mp3"
	"pulse/routine"
	"pulse/signal"
	"pulse/wav"
)

type demoCommand struct {
	configPath string
	duration   float64
	wavPath    string
	mp3Path    string
}

func (cmd *demoCommand) Name() string {
	return "demo"
}

func (cmd *demoCommand) Help() string {
	return "Render a scheduled demo scene to wav/mp3"
}

func (cmd *demoCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.configPath, "config", "", "path to yaml engine config")
	fs.Float64Var(&cmd.duration, "duration", 5, "render duration in seconds")
	fs.StringVar(&cmd.wavPath, "wav", "demo.wav", "wav output path, empty to disable")
	fs.StringVar(&cmd.mp3Path, "mp3", "", "mp3 output path, empty to disable")
}

// Run renders a small scene exercising the scheduler and the graph: a
// carrier sine crossfaded from channel 0 to both channels, a metro
// stepping its frequency through a scale, and a line fading a noise bed
// out.
func (cmd *demoCommand) Run([]string) error {
	if cmd.wavPath == "" && cmd.mp3Path == "" {
		return errors.New("no output: set -wav or -mp3")
	}
	cfg, err := loadConfig(cmd.configPath)
	if err != nil {
		return err
	}

	e := engine.New(cfg, engine.WithLogger(log.GetLogger()))
	s := e.Scheduler()
	g := e.Graph()

	carrier := gen.NewSine(cfg.SampleRate, 220, 0.5)
	g.AddToRoot(carrier, graph.AudioRate, 0)
	g.RouteNodeToChannels(carrier, []uint32{0, 1}, 50, graph.AudioRate)

	scale := []float64{220, 247.5, 275, 293.33, 330, 366.67, 412.5, 440}
	step := 0
	routine.Metro(s, "scale", 0.5, func() {
		carrier.SetFrequency(scale[step%len(scale)])
		step++
	})

	bed := gen.NewNoise(0.2, 1)
	g.AddToRoot(bed, graph.AudioRate, 0)
	g.AddToRoot(bed, graph.AudioRate, 1)
	routine.Line(s, "bed_fade", 0.2, 0, cmd.duration/2, 0.05, false)
	routine.Metro(s, "bed_gain", 0.05, func() {
		t := s.Task("bed_fade")
		if t == nil {
			return
		}
		if v := t.State("current_value"); v != nil {
			if amp, ok := v.Float(); ok {
				bed.SetAmplitude(amp)
			}
		}
	})

	if cmd.wavPath != "" {
		sink, err := wav.NewSink(cmd.wavPath, signal.BitDepth16)
		if err != nil {
			return err
		}
		e.Buffers().RegisterSink(graph.AudioBackend, sink)
	}
	if cmd.mp3Path != "" {
		e.Buffers().RegisterSink(graph.AudioBackend, mp3.NewSink(cmd.mp3Path, cfg.Sinks.Mp3BitRate, cfg.Sinks.Mp3Quality))
	}
	return e.Render(cmd.duration)
}
