package pitch

import "github.com/verte-zerg/fretiq/internal/yin"

// YIN is the default Factory.
func YIN(params Params) (Estimator, error) {
	d, err := yin.New(yin.Params{
		WindowSize:   params.WindowSize,
		HopSize:      params.HopSize,
		SampleRate:   float64(params.SampleRate),
		Tolerance:    params.Tolerance,
		MinFrequency: yin.DefaultParams.MinFrequency,
		MaxFrequency: yin.DefaultParams.MaxFrequency,
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
