package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/asticode/go-astikit"
	"github.com/mpegts/tsdemux"
	"github.com/pkg/profile"
)

var (
	ctx, cancel     = context.WithCancel(context.Background())
	cpuProfiling    = flag.Bool("cp", false, "if yes, cpu profiling is enabled")
	format          = flag.String("f", "", "the format")
	inputPath       = flag.String("i", "", "the input path")
	memoryProfiling = flag.Bool("mp", false, "if yes, memory profiling is enabled")
	verbose         = flag.Bool("v", false, "if yes, packet-by-packet tracing is enabled")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s <programs|events>:\n", os.Args[0])
		flag.PrintDefaults()
	}
	cmd := astikit.FlagCmd()
	flag.Parse()

	handleSignals()

	if *cpuProfiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *memoryProfiling {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	r, err := buildReader()
	if err != nil {
		log.Fatal(fmt.Errorf("tsdemux: parsing input failed: %w", err))
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	tsdemux.SetLogger(log.Default())
	tsdemux.SetVerbose(*verbose)

	switch cmd {
	case "events":
		if err := runEvents(r); err != nil {
			log.Fatal(fmt.Errorf("tsdemux: streaming events failed: %w", err))
		}
	default:
		pgms, err := runPrograms(r)
		if err != nil {
			log.Fatal(fmt.Errorf("tsdemux: collecting programs failed: %w", err))
		}
		switch *format {
		case "json":
			e := json.NewEncoder(os.Stdout)
			e.SetIndent("", "  ")
			if err := e.Encode(pgms); err != nil {
				log.Fatal(fmt.Errorf("tsdemux: json encoding to stdout failed: %w", err))
			}
		default:
			fmt.Println("Programs are:")
			for _, pgm := range pgms {
				fmt.Println(pgm.String())
			}
		}
	}
}

func handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch)
	go func() {
		for s := range ch {
			if s != syscall.SIGURG {
				log.Printf("Received signal %s\n", s)
			}
			switch s {
			case syscall.SIGABRT, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
				cancel()
				return
			}
		}
	}()
}

func buildReader() (r io.Reader, err error) {
	if len(*inputPath) <= 0 {
		return nil, errors.New("use -i to indicate an input path")
	}

	u, err := url.Parse(*inputPath)
	if err != nil {
		return nil, fmt.Errorf("tsdemux: parsing input path failed: %w", err)
	}

	switch u.Scheme {
	case "udp":
		addr, err := net.ResolveUDPAddr("udp", u.Host)
		if err != nil {
			return nil, fmt.Errorf("tsdemux: resolving udp addr %s failed: %w", u.Host, err)
		}
		c, err := net.ListenMulticastUDP("udp", nil, addr)
		if err != nil {
			return nil, fmt.Errorf("tsdemux: listening on multicast udp addr %s failed: %w", u.Host, err)
		}
		c.SetReadBuffer(4096)
		return c, nil
	default:
		f, err := os.Open(*inputPath)
		if err != nil {
			return nil, fmt.Errorf("tsdemux: opening %s failed: %w", *inputPath, err)
		}
		return f, nil
	}
}

// runEvents prints every PAT/PMT/PCR callback as it fires, useful for
// watching a live multicast feed renegotiate programs.
func runEvents(r io.Reader) error {
	h := &loggingEventHandler{}
	dmx := tsdemux.NewDemuxer(tsdemux.NewReaderByteSource(r), tsdemux.DemuxerOptEventHandler(h))
	return dmx.Run(ctx)
}

// runPrograms drains the input (until end-of-stream or cancellation),
// accumulating every PAT/PMT diff, then returns a flattened report of each
// program's PMT PID, PCR PID and elementary streams.
func runPrograms(r io.Reader) ([]*program, error) {
	c := newProgramCollector()
	dmx := tsdemux.NewDemuxer(tsdemux.NewReaderByteSource(r), tsdemux.DemuxerOptEventHandler(c))
	if err := dmx.Run(ctx); err != nil {
		return nil, err
	}
	return c.programs(), nil
}

type loggingEventHandler struct{ tsdemux.NoopEventHandler }

func (loggingEventHandler) OnProgramAdded(programID, pmtPID uint16) {
	log.Printf("PAT: program %d -> PMT PID %d\n", programID, pmtPID)
}
func (loggingEventHandler) OnProgramRemoved(programID, pmtPID uint16) {
	log.Printf("PAT: program %d removed (was PMT PID %d)\n", programID, pmtPID)
}
func (loggingEventHandler) OnPCRPIDChanged(programID, pcrPID uint16) {
	log.Printf("PMT: program %d PCR PID -> %d\n", programID, pcrPID)
}
func (loggingEventHandler) OnStreamAdded(programID, pid uint16, es tsdemux.ESRecord) {
	log.Printf("PMT: program %d stream %d added: %s\n", programID, pid, es.DisplayName)
}
func (loggingEventHandler) OnStreamRemoved(programID, pid uint16, es tsdemux.ESRecord) {
	log.Printf("PMT: program %d stream %d removed: %s\n", programID, pid, es.DisplayName)
}
