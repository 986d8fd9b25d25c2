package services

import (
	"fmt"
	"strconv"
	"strings"

	"streamcast/internal/core/domain"
)

const (
	encoderBinary   = "ffmpeg"
	audioBitrate    = "160k"
	audioSampleRate = "44100"
)

// SynthesizeEncoderCommand builds the encoder invocation for one launch.
// It is a pure function: same inputs, same argument list, no I/O. The
// caller guarantees the bitrate is a well-formed value such as "4500k".
func SynthesizeEncoderCommand(content domain.StreamContent, resolution, bitrate, primaryIngestionURL string, extraDestinations []string) domain.EncoderCommand {
	var args []string

	if content.Loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-re", "-i", content.Source)

	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", bitrate,
		"-maxrate", bitrate,
		"-bufsize", doubleBitrate(bitrate),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", audioSampleRate,
		"-b:a", audioBitrate,
	)

	if resolution != "" {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:%s", strings.TrimSuffix(resolution, "p")))
	}

	destinations := append([]string{primaryIngestionURL}, extraDestinations...)
	if len(destinations) == 1 {
		args = append(args, "-f", "flv", destinations[0])
	} else {
		legs := make([]string, len(destinations))
		for i, dest := range destinations {
			legs[i] = "[f=flv:onfail=ignore]" + dest
		}
		// The tee target list is one discrete argv token; ffmpeg parses
		// the "|" separators itself, so no shell quoting is involved.
		args = append(args, "-f", "tee", strings.Join(legs, "|"))
	}

	return domain.EncoderCommand{Binary: encoderBinary, Args: args}
}

// doubleBitrate returns twice the numeric value of a bitrate string,
// keeping its unit suffix: "4500k" -> "9000k".
func doubleBitrate(bitrate string) string {
	digits := len(bitrate)
	for i, r := range bitrate {
		if r < '0' || r > '9' {
			digits = i
			break
		}
	}
	value, err := strconv.Atoi(bitrate[:digits])
	if err != nil {
		return bitrate
	}
	return strconv.Itoa(value*2) + bitrate[digits:]
}
