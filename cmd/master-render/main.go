// Command master-render masters a WAV file offline: it applies a named
// preset (or a config overlay file) through the mastering chain, writes
// the processed WAV, and prints the loudness report with target
// compliance.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-mastering/mastering"
	"github.com/cwbudde/algo-mastering/measure/loudness"
	"github.com/cwbudde/wav"
)

var targets = map[string]loudness.Target{
	"streaming": loudness.TargetStreaming,
	"ebu":       loudness.TargetEBUR128,
	"atsc":      loudness.TargetATSC,
	"cinema":    loudness.TargetCinema,
}

func main() {
	input := flag.String("input", "", "Input WAV file path (required)")
	output := flag.String("output", "mastered.wav", "Output WAV file path")
	presetName := flag.String("preset", "streaming/default", "Preset as category/name")
	configPath := flag.String("config", "", "Config overlay JSON file (overrides -preset)")
	targetName := flag.String("target", "streaming", "Compliance target: streaming, ebu, atsc, cinema or none")
	listPresets := flag.Bool("list-presets", false, "List built-in presets and exit")
	flag.Parse()

	if *listPresets {
		for _, name := range mastering.PresetNames() {
			fmt.Println(name)
		}

		return
	}

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := resolveConfig(*presetName, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving configuration: %v\n", err)
		os.Exit(1)
	}

	left, right, sampleRate, err := readWAV(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", *input, err)
		os.Exit(1)
	}

	fmt.Printf("Mastering %s (%d frames at %d Hz)...\n", *input, len(left), sampleRate)

	reading, err := mastering.Render(float64(sampleRate), cfg, left, right)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		os.Exit(1)
	}

	bitDepth := 24
	if cfg.Dither.Enabled && (cfg.Dither.BitDepth == 16 || cfg.Dither.BitDepth == 24) {
		bitDepth = cfg.Dither.BitDepth
	}

	if err := writeWAV(*output, left, right, sampleRate, bitDepth); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", *output, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (%d-bit)\n\n", *output, bitDepth)

	printReport(reading)

	if *targetName != "none" {
		target, ok := targets[*targetName]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown target %q\n", *targetName)
			os.Exit(1)
		}

		printCompliance(target, reading)
	}
}

func resolveConfig(presetName, configPath string) (mastering.Config, error) {
	if configPath != "" {
		return mastering.LoadConfigJSON(configPath)
	}

	category, name, ok := strings.Cut(presetName, "/")
	if !ok {
		return mastering.Config{}, fmt.Errorf("preset must be category/name: %q", presetName)
	}

	return mastering.Preset(category, name)
}

func readWAV(path string) (left, right []float64, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, nil, 0, fmt.Errorf("invalid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, 0, err
	}

	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, nil, 0, fmt.Errorf("invalid wav buffer")
	}

	numCh := buf.Format.NumChannels

	frames := len(buf.Data) / numCh
	if frames == 0 {
		return nil, nil, 0, fmt.Errorf("empty wav data")
	}

	left = make([]float64, frames)
	right = make([]float64, frames)

	if numCh == 1 {
		for i := range frames {
			v := float64(buf.Data[i])
			left[i] = v
			right[i] = v
		}
	} else {
		for i := range frames {
			left[i] = float64(buf.Data[i*numCh])
			right[i] = float64(buf.Data[i*numCh+1])
		}
	}

	return left, right, buf.Format.SampleRate, nil
}

func writeWAV(path string, left, right []float64, sampleRate, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const numChannels = 2

	enc := wav.NewEncoder(f, sampleRate, bitDepth, numChannels, 1)
	defer enc.Close()

	samples := make([]float32, 0, len(left)*numChannels)
	for i := range left {
		samples = append(samples, float32(left[i]), float32(right[i]))
	}

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: numChannels,
		},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}

	return enc.Write(buf)
}

func printReport(r loudness.Reading) {
	fmt.Println("Loudness report")
	fmt.Printf("  Integrated:      %s LUFS\n", fmtLevel(r.Integrated))
	fmt.Printf("  Loudness range:  %.1f LU\n", r.LoudnessRange)
	fmt.Printf("  Max momentary:   %s LUFS\n", fmtLevel(r.MaxMomentary))
	fmt.Printf("  Max short-term:  %s LUFS\n", fmtLevel(r.MaxShortTerm))
	fmt.Printf("  True peak:       %s dBTP (L %s, R %s)\n",
		fmtLevel(r.TruePeakMax), fmtLevel(r.TruePeakL), fmtLevel(r.TruePeakR))
}

func printCompliance(t loudness.Target, r loudness.Reading) {
	c := t.Compare(r)

	status := "OUT OF SPEC"
	if c.WithinTolerance && c.TruePeakCompliant && c.RangeCompliant {
		status = "PASS"
	}

	fmt.Printf("\nTarget %s (%s LUFS, max %s dBTP): %s\n",
		t.Name, fmtLevel(t.IntegratedLUFS), fmtLevel(t.MaxTruePeakDB), status)
	fmt.Printf("  Deviation:       %+.1f LU (gain to target %+.1f dB)\n", c.DeviationLU, c.GainAdjustDB)
	fmt.Printf("  Within +/-%.1f LU: %v\n", t.ToleranceLU, c.WithinTolerance)
	fmt.Printf("  True peak ok:    %v\n", c.TruePeakCompliant)
	fmt.Printf("  Range ok:        %v (max %.0f LU)\n", c.RangeCompliant, t.MaxRangeLU)
}

func fmtLevel(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf"
	}

	return fmt.Sprintf("%.1f", v)
}
