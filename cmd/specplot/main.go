package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"github.com/soundtrace/soundtrace/internal/audio"
)

// specplot renders a debug spectrogram PNG for every WAV file under a
// directory. It decodes with the same WAV decoder the catalog and matcher
// pipelines use, but renders with the spectrogram library's own FFT at the
// file's native sample rate, not the fingerprinter's Hann-windowed STFT at
// the analysis rate.
func main() {
	inputDir := flag.String("in", "test/convertedtestdata", "directory of .wav files to render")
	outputDir := flag.String("out", "test/spectrograms", "directory to write .png spectrograms to")
	height := flag.Int("bins", 512, "frequency bins (image height)")
	width := flag.Int("width", 2048, "image width")
	flag.Parse()

	if err := audio.MakeDir(*outputDir); err != nil {
		log.Fatal(err)
	}

	err := filepath.WalkDir(*inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".wav" {
			return nil
		}

		fmt.Printf("Processing %s...\n", path)

		samples, sampleRate, err := audio.DecodeWAVFile(path)
		if err != nil {
			log.Printf("Error decoding %s: %v", path, err)
			return nil
		}
		if len(samples) == 0 {
			log.Printf("No samples in %s", path)
			return nil
		}

		fmt.Printf("Read %d samples at %d Hz\n", len(samples), sampleRate)

		img := spectrogram.NewImage128(image.Rect(0, 0, *width, *height))

		black := spectrogram.ParseColor("000000")
		draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

		// RECTANGLE=false uses a Hamming window, DFT=false uses FFT, MAG=true
		// plots magnitude, LOG10=false keeps a linear scale (log10 blows out
		// the dynamic range on short clips).
		spectrogram.Drawfft(
			img,
			samples,
			uint32(sampleRate),
			uint32(*height),
			false,
			false,
			true,
			false,
		)

		baseName := filepath.Base(path)
		outputPath := filepath.Join(*outputDir, baseName+".png")

		if err := spectrogram.SavePng(img, outputPath); err != nil {
			log.Printf("Error saving PNG for %s: %v", outputPath, err)
			return nil
		}

		fmt.Printf("Saved spectrogram to %s\n", outputPath)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Done!")
}
