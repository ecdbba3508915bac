package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/cbegin/vpsaudio-go"
)

const defaultScript = "start,android,wait:3s,score*10,wait:2s,rollover,score*2,wait:2s,flipper,ball,wait:2s,score*12,wait:4s"

func main() {
	var (
		media      = flag.String("media", ".", "directory holding the sound bank")
		manifest   = flag.String("manifest", "VPS2.json", "bank manifest inside -media")
		sampleRate = flag.Int("sample-rate", 44100, "output sample rate")
		script     = flag.String("script", defaultScript, "comma-separated triggers, e.g. start,score*12,wait:500ms,rollover")
		simulate   = flag.Bool("simulate", false, "ignore -script and play a random game for -seconds")
		render     = flag.String("render", "", "render offline to this WAV file instead of playing")
		seconds    = flag.Float64("seconds", 20, "session length in seconds")
		seed       = flag.Uint64("seed", 0, "random seed (0 = time based)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		verbose    = flag.Bool("v", false, "log engine steps to stderr")
	)
	flag.Parse()

	if !(*seconds > 0) {
		log.Fatalf("-seconds must be positive, got %v", *seconds)
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(*seed, *seed>>1|1))

	var steps []vpsaudio.Step
	if *simulate {
		steps = simulatedGame(rng, time.Duration(*seconds*float64(time.Second)))
	} else {
		var err error
		if steps, err = vpsaudio.ParseScript(*script); err != nil {
			log.Fatal(err)
		}
	}

	opts := []vpsaudio.Option{
		vpsaudio.WithSampleRate(*sampleRate),
		vpsaudio.WithManifest(*manifest),
		vpsaudio.WithRand(rng),
		vpsaudio.WithMasterVolume(*volume),
	}
	if *verbose {
		opts = append(opts, vpsaudio.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	if *render != "" {
		opts = append(opts, vpsaudio.WithOffline())
	}
	b, err := vpsaudio.NewBridge(opts...)
	if err != nil {
		log.Fatal(err)
	}
	events := b.Watch()
	go func() {
		for ev := range events {
			if ev.Kind != vpsaudio.EventSegmentEnded || *verbose {
				fmt.Println(ev)
			}
		}
	}()

	if err := b.InitSession(*media); err != nil {
		log.Fatal(err)
	}
	defer b.EndSession()

	timeline := vpsaudio.NewTimeline(steps)
	if *render != "" {
		out, err := b.RenderSession(*seconds, func(elapsed time.Duration) error {
			return timeline.Advance(b, elapsed)
		})
		if err != nil {
			log.Fatal(err)
		}
		if err := vpsaudio.WriteWAV(*render, out, b.SampleRate()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.1fs)\n", *render, *seconds)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(*seconds*float64(time.Second)))
	defer cancel()
	go func() {
		if err := b.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("update loop: %v", err)
		}
	}()
	if err := play(ctx, b, timeline); err != nil {
		log.Print(err)
	}
	<-ctx.Done()
	st := b.State()
	fmt.Printf("scores=%d intro=%v bass=%d drums=%s\n", st.Scores, st.IntroPlayed, st.BassPhase, st.DrumPattern)
}

// play runs the timeline against the wall clock.
func play(ctx context.Context, b *vpsaudio.Bridge, timeline *vpsaudio.Timeline) error {
	start := time.Now()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !timeline.Done() {
		if err := timeline.Advance(b, time.Since(start)); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// simulatedGame produces a plausible stream of pinball events: mostly
// bumper scores, with flippers, rollovers and the odd message.
func simulatedGame(rng *rand.Rand, length time.Duration) []vpsaudio.Step {
	steps := []vpsaudio.Step{
		{Action: vpsaudio.ActionStart, Repeat: 1},
		{Action: vpsaudio.ActionBall, Repeat: 1},
	}
	for t := time.Duration(0); t < length; {
		gap := time.Duration(80+rng.IntN(400)) * time.Millisecond
		steps = append(steps, vpsaudio.Step{Action: vpsaudio.ActionWait, Wait: gap})
		t += gap
		action := vpsaudio.ActionScore
		switch r := rng.IntN(100); {
		case r < 20:
			action = vpsaudio.ActionFlipper
		case r < 28:
			action = vpsaudio.ActionRollover
		case r < 30:
			action = vpsaudio.ActionMessage
		case r < 31:
			action = vpsaudio.ActionBall
		}
		steps = append(steps, vpsaudio.Step{Action: action, Repeat: 1})
	}
	return steps
}
