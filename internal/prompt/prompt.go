// Package prompt sounds the current target on a MIDI output so the player can
// hear what to play.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const (
	channel  = 0
	velocity = 90
	noNote   = -1
)

// Prompter plays a reference note for each new target.
type Prompter interface {
	Play(midi int) error
	Close() error
}

// Nop is the Prompter used when no MIDI output is configured.
type Nop struct{}

func (Nop) Play(int) error { return nil }
func (Nop) Close() error   { return nil }

// MIDI holds one note at a time on an output port. It is safe for concurrent use.
type MIDI struct {
	mu      sync.Mutex
	drv     *rtmididrv.Driver
	out     drivers.Out
	send    func(midi.Message) error
	current int
}

// Open connects to the first output whose name contains port (case-insensitive).
func Open(port string) (*MIDI, error) {
	if strings.TrimSpace(port) == "" {
		return nil, errors.New("midi output name is empty")
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize midi driver: %w", err)
	}
	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to list midi outputs: %w", err)
	}
	var found drivers.Out
	for _, out := range outs {
		if containsCI(out.String(), port) {
			found = out
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("midi output %q not found", port)
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to open midi output %q: %w", found.String(), err)
	}
	send, err := midi.SendTo(found)
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("failed to attach to midi output %q: %w", found.String(), err)
	}
	p := newMIDI(send)
	p.drv = drv
	p.out = found
	return p, nil
}

func newMIDI(send func(midi.Message) error) *MIDI {
	return &MIDI{send: send, current: noNote}
}

// Play releases the sounding note and starts key. An out-of-range key only
// releases.
func (p *MIDI) Play(key int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.send == nil {
		return errors.New("midi output closed")
	}
	if err := p.release(); err != nil {
		return err
	}
	if key < 0 || key > 127 {
		return nil
	}
	if err := p.send(midi.NoteOn(channel, uint8(key), velocity)); err != nil {
		return fmt.Errorf("failed to send note on: %w", err)
	}
	p.current = key
	return nil
}

// Close releases the sounding note and the port.
func (p *MIDI) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.send == nil {
		return nil
	}
	err := p.release()
	p.send = nil
	if p.out != nil {
		_ = p.out.Close()
		p.out = nil
	}
	if p.drv != nil {
		p.drv.Close()
		p.drv = nil
	}
	return err
}

func (p *MIDI) release() error {
	if p.current == noNote {
		return nil
	}
	key := p.current
	p.current = noNote
	if err := p.send(midi.NoteOff(channel, uint8(key))); err != nil {
		return fmt.Errorf("failed to send note off: %w", err)
	}
	return nil
}

// OutPorts lists the MIDI output names.
func OutPorts() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize midi driver: %w", err)
	}
	defer drv.Close()
	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("failed to list midi outputs: %w", err)
	}
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names, nil
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
