/*
DESCRIPTION
  stitch is a command-line tool that builds a panorama from a set of
  overlapping input images.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main implements the stitch command-line panorama builder.
package main

import (
	"context"
	stdimage "image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"time"

	"flag"
	"fmt"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/panostitch/stitch"
	"github.com/ausocean/panostitch/stitch/config"
	simage "github.com/ausocean/panostitch/stitch/image"
)

// Logging configuration, matching the teacher's cmd tools.
const (
	logPath      = "stitch.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

func main() {
	out := flag.String("o", "panorama.png", "output panorama path")
	projection := flag.String("projection", "spherical", "output projection: flat, cylindrical or spherical")
	estimateCamera := flag.Bool("estimate-camera", true, "refine camera geometry via bundle adjustment; if false, skip it, fit affine pairwise transforms and force cylindrical projection")
	verbose := flag.Bool("v", false, "verbose logging to stderr in addition to the log file")
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, fileLog, logSuppress && !*verbose)

	paths := flag.Args()
	if len(paths) < 2 {
		log.Fatal("need at least 2 input images", "got", len(paths))
	}

	images := make([]*simage.Image, len(paths))
	for i, p := range paths {
		img, err := decode(p)
		if err != nil {
			log.Fatal("could not decode input image", "path", p, "error", err.Error())
		}
		images[i] = img
		log.Info("decoded input image", "path", p, "width", img.Width(), "height", img.Height())
	}

	cfg := config.New()
	cfg.Logger = log
	cfg.EstimateCamera = *estimateCamera
	switch *projection {
	case "flat":
		cfg.Projection = config.ProjectionFlat
	case "cylindrical":
		cfg.Projection = config.ProjectionCylindrical
	case "spherical":
		cfg.Projection = config.ProjectionSpherical
	default:
		log.Fatal("unknown projection", "projection", *projection)
	}

	s, err := stitch.New(cfg, images)
	if err != nil {
		log.Fatal("could not create stitcher", "error", err.Error())
	}

	start := time.Now()
	panorama, err := s.Build(context.Background())
	if err != nil {
		log.Fatal("stitching failed", "error", err.Error())
	}
	log.Info("stitching complete", "elapsed", time.Since(start).String())

	if err := encode(*out, panorama); err != nil {
		log.Fatal("could not write output panorama", "path", *out, "error", err.Error())
	}
	fmt.Printf("wrote panorama to %s (%dx%d)\n", *out, panorama.Width(), panorama.Height())
}

// decode reads a PNG or JPEG file into the pipeline's float sample
// buffer, normalizing 16-bit/8-bit channel values to [0, 1].
func decode(path string) (*simage.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := stdimage.Decode(f)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := simage.New(h, w, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Set(y, x, 0, float64(r)/0xffff)
			out.Set(y, x, 1, float64(g)/0xffff)
			out.Set(y, x, 2, float64(bl)/0xffff)
		}
	}
	return out, nil
}

// encode writes im as a PNG file, mapping the "no data" sentinel to
// black.
func encode(path string, im *simage.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	out := stdimage.NewRGBA(stdimage.Rect(0, 0, im.Width(), im.Height()))
	for y := 0; y < im.Height(); y++ {
		for x := 0; x < im.Width(); x++ {
			if im.IsNoData(y, x) {
				out.Set(x, y, color.Black)
				continue
			}
			p := im.At(y, x)
			out.Set(x, y, color.RGBA{
				R: clamp8(p[0]),
				G: clamp8(p[1]),
				B: clamp8(p[2]),
				A: 0xff,
			})
		}
	}
	return png.Encode(f, out)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}
