// Command oggplay decodes an Ogg Vorbis file to a WAV file on disk. It
// is a demo driver for the vorbis/oggdemux packages, not a playback
// tool: there is no audio-sink integration (spec.md §1 non-goal).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/apcera/termtables"
	cli "github.com/jawher/mow.cli"
	log "github.com/sirupsen/logrus"
	"github.com/xlab/closer"

	"github.com/go-audio/wav"

	"github.com/christosk92/WaveeVorbis/bytestream"
	"github.com/christosk92/WaveeVorbis/mediaerr"
	"github.com/christosk92/WaveeVorbis/vorbis"
)

const outputBitDepth = 16

var (
	app    = cli.App("oggplay", "Decodes an Ogg Vorbis file to a WAV file.")
	input  = app.StringArg("INPUT", "", "Path to a .ogg Vorbis file.")
	output = app.StringOpt("o output", "", "Output WAV path (default: INPUT with .wav extension).")
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	app.Action = run
	app.Run(os.Args)
}

func run() {
	defer closer.Close()
	closer.Bind(func() {
		log.Info("oggplay: done")
	})

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalln(err)
	}
	closer.Bind(func() { f.Close() })

	src, err := bytestream.NewReader(f, bytestream.MinBufferLength)
	if err != nil {
		log.Fatalln(err)
	}

	dec, err := vorbis.New(src)
	if err != nil {
		log.Fatalln(err)
	}
	closer.Bind(dec.Close)

	info := dec.Info()
	log.Println(fileInfoTable(info))

	outPath := *output
	if outPath == "" {
		outPath = strings.TrimSuffix(*input, ".ogg") + ".wav"
	}
	outFile, err := os.Create(outPath)
	if err != nil {
		log.Fatalln(err)
	}
	closer.Bind(func() { outFile.Close() })

	enc := wav.NewEncoder(outFile, int(info.SampleRate), outputBitDepth, info.Channels, 1)
	closer.Bind(func() {
		if err := enc.Close(); err != nil {
			log.WithError(err).Warn("oggplay: closing WAV encoder")
		}
	})

	var frames int64
	for {
		buf, err := dec.NextFrame()
		if err != nil {
			if mediaerr.Is(err, mediaerr.EndOfStream) {
				break
			}
			log.Fatalln(err)
		}
		if buf.Frames() == 0 {
			continue
		}
		fb := buf.ToFloatBuffer(outputBitDepth)
		if err := enc.Write(fb.AsIntBuffer()); err != nil {
			log.Fatalln(err)
		}
		frames += int64(buf.Frames())
	}

	log.WithField("frames", frames).WithField("path", outPath).Info("oggplay: wrote WAV")
}

func fileInfoTable(info vorbis.Info) string {
	table := termtables.CreateTable()
	table.UTF8Box()
	table.AddTitle("FILE INFO")
	for _, comment := range info.Comments {
		parts := strings.SplitN(comment, "=", 2)
		if row := table.AddRow(parts[0]); len(parts) > 1 {
			row.AddCell(parts[1])
		}
	}
	if len(info.Comments) > 0 {
		table.AddSeparator()
	}
	table.AddRow("Bitstream", fmt.Sprintf("%d channel, %dHz", info.Channels, info.SampleRate))
	table.AddRow("Encoded by", info.Vendor)
	return table.Render()
}
