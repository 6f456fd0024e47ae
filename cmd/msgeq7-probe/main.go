// Command msgeq7-probe checks the serial link to the board: it lists the
// available ports, opens one and reports how the first lines parse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"msgeq7-viz/src/config"
	"msgeq7-viz/src/frame"
	"msgeq7-viz/src/models"
	"msgeq7-viz/src/source"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Default()
	if err != nil {
		log.Fatal(err)
	}
	port := flag.String("port", cfg.Source.Serial.Port, "serial port")
	baud := flag.Int("baud", cfg.Source.Serial.BaudRate, "baud rate")
	count := flag.Int("n", 20, "number of lines to read")
	cmd := flag.String("cmd", "", "device command to send first, e.g. rainbow")
	flag.Parse()
	if env := os.Getenv("MSGEQ7_SERIAL_PORT"); env != "" && *port == cfg.Source.Serial.Port {
		*port = env
	}

	// 1. List ports
	fmt.Println("1. Serial ports")
	ports, err := source.ListPorts()
	if err != nil {
		log.Printf("   listing failed: %v", err)
	}
	if len(ports) == 0 {
		fmt.Println("   none found")
	}
	for _, p := range ports {
		mark := " "
		if p == *port {
			mark = "*"
		}
		fmt.Printf("   %s %s\n", mark, p)
	}
	fmt.Println()

	// 2. Open
	fmt.Printf("2. Opening %s @ %d\n", *port, *baud)
	cfg.Source.Serial.Port = *port
	cfg.Source.Serial.BaudRate = *baud
	s, err := source.OpenSerial(cfg.Source.Serial)
	if err != nil {
		log.Fatalf("   open failed: %v", err)
	}
	defer s.Close()
	fmt.Println("   ok")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *cmd != "" {
		fmt.Printf("   sending %q\n", *cmd)
		if err := s.Send(*cmd); err != nil {
			log.Printf("   send failed: %v", err)
		}
	}

	// 3. Read lines
	fmt.Printf("3. Reading %d lines\n", *count)
	var frames, device, malformed, idle int
	start := time.Now()
	for i := 0; i < *count; {
		line, err := s.ReadLine(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("   read failed: %v", err)
			}
			break
		}
		if line == "" {
			idle++
			if idle > 10 {
				fmt.Println("   no data for 10 read timeouts, giving up")
				break
			}
			continue
		}
		i++

		f, err := frame.ParseLine(line)
		switch {
		case err == nil:
			frames++
			fmt.Printf("   [%2d] frame  bass %4.0f %4.0f  mid %4.0f %4.0f %4.0f  treble %4.0f %4.0f  thr %.0f/%.0f\n",
				i, f.Bands[0], f.Bands[1], f.Bands[2], f.Bands[3], f.Bands[4], f.Bands[5], f.Bands[6],
				f.BassThreshold, f.TrebleThreshold)
		case frame.IsDeviceMessage(line):
			device++
			fmt.Printf("   [%2d] device %s\n", i, line)
		case errors.Is(err, frame.ErrMalformed):
			malformed++
			fmt.Printf("   [%2d] skip   %q (%v)\n", i, line, err)
		}
	}
	fmt.Println()

	elapsed := time.Since(start)
	fmt.Println("=== Summary ===")
	fmt.Printf("frames: %d  device: %d  malformed: %d  (%d fields expected, %d bands)\n",
		frames, device, malformed, models.FieldsPerFrame, models.NumBands)
	if frames > 0 && elapsed > 0 {
		fmt.Printf("rate: %.1f frames/s\n", float64(frames)/elapsed.Seconds())
	}
}
