package vpsaudio

import (
	"errors"
)

// silentMessages are status lines that have no message sound.
var silentMessages = map[string]bool{
	"Ball 2":    true,
	"Ball 3":    true,
	"Game Over": true,
}

// PlayScore plays a ding and paces the music on the score count: the bass
// moves on every Cadence.BassEvery scores, the drums every DrumsEvery, and
// the android theme restarts on a stretching interval so it is heard less
// often as the game goes on.
//
// All due steps run even if one fails; their errors are joined.
func (b *Bridge) PlayScore() error {
	if err := b.TriggerScore(); err != nil {
		return err
	}
	b.mu.Lock()
	b.scores++
	n := b.scores
	c := b.cfg.cadence
	bass := c.BassEvery > 0 && n%c.BassEvery == 0
	drums := c.DrumsEvery > 0 && n%c.DrumsEvery == 0
	android := b.introEvery > 0 && n%b.introEvery == 0
	if android {
		b.introEvery += c.IntroGrowth
	}
	b.mu.Unlock()

	var errs []error
	if bass {
		errs = append(errs, b.AdvanceBass())
	}
	if drums {
		errs = append(errs, b.AdvanceDrums())
	}
	if android {
		errs = append(errs, b.AdvanceAndroidTrack())
	}
	return errors.Join(errs...)
}

// PlayMessage plays the message sound for a status line, except for the
// ball-count and game-over lines.
func (b *Bridge) PlayMessage(text string) error {
	if silentMessages[text] {
		return nil
	}
	return b.TriggerMessage()
}
