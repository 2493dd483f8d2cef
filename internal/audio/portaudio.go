package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudio captures the default input device.
type PortAudio struct {
	SampleRate int
	BlockSize  int
}

// NewPortAudio returns a mono capture source.
func NewPortAudio(sampleRate, blockSize int) *PortAudio {
	return &PortAudio{SampleRate: sampleRate, BlockSize: blockSize}
}

// Run opens the default input stream and invokes process from the driver
// callback until ctx is done.
func (p *PortAudio) Run(ctx context.Context, process func(block []float32)) (err error) {
	if p.SampleRate <= 0 || p.BlockSize <= 0 {
		return errors.New("sample rate and block size must be > 0")
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer func() {
		if termErr := portaudio.Terminate(); termErr != nil && err == nil {
			err = fmt.Errorf("failed to terminate portaudio: %w", termErr)
		}
	}()

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(p.SampleRate), p.BlockSize, func(in []float32) {
		process(in)
	})
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	<-ctx.Done()
	if err := stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}

// Device describes an input-capable device.
type Device struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// Devices lists the input-capable devices.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		d := Device{
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			Default:           info.Name == defaultName,
		}
		if info.HostApi != nil {
			d.HostAPI = info.HostApi.Name
		}
		devices = append(devices, d)
	}
	return devices, nil
}
