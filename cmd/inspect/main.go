package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/wippyai/selfwire"
	"github.com/wippyai/selfwire/wire"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

func main() {
	var (
		file    = flag.String("file", "", "Path to envelope file (.zst files are decompressed transparently)")
		plain   = flag.Bool("plain", false, "Disable styled output")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if *file == "" && flag.NArg() > 0 {
		*file = flag.Arg(0)
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: inspect [-plain] [-verbose] <envelope-file>")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		selfwire.SetLogger(logger)
	}

	if err := inspect(*file, *plain); err != nil {
		msg := fmt.Sprintf("Error: %v", err)
		if !*plain {
			msg = errorStyle.Render(msg)
		}
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
}

func inspect(path string, plain bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("decompress: %w", err)
		}
	}

	pool, root, trace, err := wire.DecodeSchema(wire.Binary{}.NewReader(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode schema section: %w", err)
	}
	schema := selfwire.NewSchema(pool, root)

	display, err := schema.Display()
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	fingerprint, err := schema.Fingerprint()
	if err != nil {
		return fmt.Errorf("fingerprint: %w", err)
	}

	// the data section is whatever follows the schema section
	var header bytes.Buffer
	if err := wire.EncodeSchema(wire.Binary{}.NewWriter(&header), pool, root, trace); err != nil {
		return fmt.Errorf("measure schema section: %w", err)
	}
	dataBytes := len(data) - header.Len()

	label := func(s string) string {
		if plain {
			return s
		}
		return labelStyle.Render(s)
	}
	value := func(s string) string {
		if plain {
			return s
		}
		return valueStyle.Render(s)
	}

	title := fmt.Sprintf("Envelope: %s", path)
	if !plain {
		title = titleStyle.Render(title)
	}
	fmt.Println(title)
	fmt.Printf("%s %s\n", label("Schema:"), value(display))
	fmt.Printf("%s %d (root id %d)\n", label("Nodes:"), pool.Len(), root)
	fmt.Printf("%s %s\n", label("Fingerprint:"), value(fmt.Sprintf("%x", fingerprint)))
	fmt.Printf("%s %s\n", label("Trace:"), value(traceSummary(trace)))
	fmt.Printf("%s %d bytes\n", label("Data:"), dataBytes)
	return nil
}

func traceSummary(trace []uint32) string {
	const maxShown = 32
	if len(trace) == 0 {
		return "0 entries"
	}
	shown := trace
	suffix := ""
	if len(shown) > maxShown {
		shown = shown[:maxShown]
		suffix = ", ..."
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%d entries [%s%s]", len(trace), strings.Join(parts, " "), suffix)
}
