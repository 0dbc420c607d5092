// Command rigolwave talks to an attached Rigol oscilloscope: it lists
// USBTMC devices, captures calibrated waveforms to CSV, and grabs
// screenshots.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jtambasco/rigoltmc/internal/config"
	"github.com/jtambasco/rigoltmc/scope"
	"github.com/jtambasco/rigoltmc/usbtmc"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	list := flag.Bool("list", false, "list attached USBTMC devices and exit")
	idn := flag.Bool("idn", false, "print the instrument identification and exit")
	channel := flag.Int("channel", 1, "channel to capture")
	mode := flag.String("mode", "", "waveform readout mode (norm, max, raw)")
	out := flag.String("out", "", "write captured waveform to this CSV file")
	screenshot := flag.String("screenshot", "", "capture the display to this file")
	format := flag.String("format", "png", "screenshot image format")
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log := setupLogger(cfg.Log)

	if *list {
		if err := listDevices(); err != nil {
			log.Fatalf("list devices: %v", err)
		}
		return
	}

	profile, ok := scope.Profiles()[cfg.Device.Profile]
	if !ok {
		log.Fatalf("unknown device profile %q", cfg.Device.Profile)
	}

	osc, err := openScope(profile, cfg.Device.Serial)
	if err != nil {
		log.Fatalf("open instrument: %v", err)
	}
	defer osc.Close()
	osc.SetLogger(log)
	if d := cfg.Capture.ReadTimeout(); d > 0 {
		osc.SetTimeout(d)
	}

	if *idn {
		id, err := osc.ID()
		if err != nil {
			log.Fatalf("identify instrument: %v", err)
		}
		fmt.Println(id)
		return
	}

	if *screenshot != "" {
		if err := osc.Screenshot(*screenshot, *format); err != nil {
			log.Fatalf("screenshot: %v", err)
		}
		log.Infof("screenshot written to %s", *screenshot)
		return
	}

	if *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	waveMode := scope.WaveMode(cfg.Capture.Mode)
	if *mode != "" {
		waveMode = scope.WaveMode(*mode)
	}

	ch, err := osc.Channel(*channel)
	if err != nil {
		log.Fatalf("select channel: %v", err)
	}

	w, err := ch.DataToCSV(waveMode, *out)
	if err != nil {
		log.Fatalf("capture waveform: %v", err)
	}
	log.WithFields(logrus.Fields{
		"channel": *channel,
		"mode":    waveMode,
		"samples": len(w.Voltage),
		"file":    *out,
	}).Info("waveform captured")
}

func openScope(profile scope.Profile, serial string) (*scope.Oscilloscope, error) {
	if serial == "" {
		return scope.Open(profile)
	}
	info, err := usbtmc.FindBySerial(usbtmc.DefaultSysfsRoots(), serial)
	if err != nil {
		return nil, err
	}
	dev, err := usbtmc.OpenKernelDevice(info.Path)
	if err != nil {
		return nil, err
	}
	return scope.New(dev, profile), nil
}

func listDevices() error {
	devices, err := usbtmc.Enumerate(usbtmc.DefaultSysfsRoots())
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no USBTMC devices attached")
		return nil
	}
	for _, d := range devices {
		fmt.Printf("%04x:%04x  %-20s  %s\n", d.VendorID, d.ProductID, d.Serial, d.Path)
	}
	return nil
}

func setupLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
