// Command astrixdump decodes ASTERIX recordings into readable output.
//
// It reads one input file (or stdin), strips the capture encapsulation,
// decodes every data block against the configured category definitions and
// prints the result in the selected format:
//
//	astrixdump -d config/asterix.ini -f json capture.pcap
//	astrixdump -F final -f text recording.ff
//	cat blocks.ast | astrixdump -d config/asterix.ini -
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/ogier/pflag"

	"github.com/croixa/astrix"
	"github.com/croixa/astrix/config"
	"github.com/croixa/astrix/framing"
	"github.com/croixa/astrix/render"
)

type options struct {
	configPath string
	manifest   string
	format     string
	framingArg string
	outputFile string
	filters    filterList
	listDefs   bool
	inputFile  string
}

func main() {
	opts, earlyExit := parseArgs()
	if earlyExit {
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		showError(err)
		os.Exit(1)
	}

	decoder, err := astrix.NewDecoder(astrix.WithManifest(cfg.Definitions.Manifest))
	if err != nil {
		showError(err)
		os.Exit(1)
	}
	for _, f := range cfg.Filters {
		decoder.FilterOut(f.Category, f.Item, f.Field)
	}

	if opts.listDefs {
		fmt.Print(decoder.PrintDefinitions())
		return
	}

	input, err := readInput(opts.inputFile)
	if err != nil {
		showError(err)
		os.Exit(1)
	}

	kind, _ := framing.ParseKind(cfg.Input.Framing)
	parsed, err := decoder.ParseFrames(input, kind, uint64(time.Now().UnixMilli()))
	if err != nil {
		showError(err)
		os.Exit(1)
	}

	format, _ := render.ParseFormat(cfg.Output.Format)
	var sb strings.Builder
	if err := decoder.Render(parsed, format, &sb); err != nil {
		showError(err)
		os.Exit(1)
	}

	out := io.Writer(os.Stdout)
	if cfg.Output.File != "" {
		file, err := os.Create(cfg.Output.File)
		if err != nil {
			showError(err)
			os.Exit(1)
		}
		defer file.Close()
		out = file
	}
	if _, err := io.WriteString(out, sb.String()); err != nil {
		showError(err)
		os.Exit(1)
	}

	if parsed.ErrorCount > 0 {
		fmt.Fprintf(os.Stderr, "astrixdump: %d of %d blocks failed to decode\n",
			parsed.ErrorCount, len(parsed.Blocks))
		os.Exit(2)
	}
}

func parseArgs() (*options, bool) {
	opts := &options{}

	flag.StringVarP(&opts.configPath, "config", "c", "", "configuration file (TOML)")
	flag.StringVarP(&opts.manifest, "definitions", "d", "", "definitions manifest listing XML grammar files")
	flag.StringVarP(&opts.format, "format", "f", "", "output format: text, line, json, jsonh, jsone, xml, xmlh")
	flag.StringVarP(&opts.framingArg, "framing", "F", "", "input framing: raw, pcap, final")
	flag.StringVarP(&opts.outputFile, "output", "o", "", "write output to file instead of stdout")
	flag.VarP(&opts.filters, "filter", "x", "suppress output field, as cat:item or cat:item:field (repeatable)")
	flag.BoolVarP(&opts.listDefs, "list", "L", false, "list loaded category definitions and exit")
	help := flag.BoolP("help", "h", false, "show usage")

	flag.Parse()

	if *help {
		fmt.Println("Usage: astrixdump [options] <input file|->")
		flag.PrintDefaults()
		return opts, true
	}

	if flag.NArg() > 0 {
		opts.inputFile = flag.Arg(0)
	}

	return opts, false
}

// loadConfig merges the TOML configuration with command-line overrides.
func loadConfig(opts *options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if opts.manifest != "" {
		cfg.Definitions.Manifest = opts.manifest
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.framingArg != "" {
		cfg.Input.Framing = opts.framingArg
	}
	if opts.outputFile != "" {
		cfg.Output.File = opts.outputFile
	}
	for _, f := range opts.filters.entries {
		cfg.Filters = append(cfg.Filters, f)
	}

	return cfg, cfg.Validate()
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(path)
}

func showError(err error) {
	fmt.Fprintf(os.Stderr, "\x1b[1;31m!! %s\x1b[0m\n", err.Error())
}

// filterList collects repeatable --filter flags of the form cat:item or
// cat:item:field.
type filterList struct {
	entries []config.FilterEntry
}

func (l *filterList) String() string {
	parts := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		s := fmt.Sprintf("%d:%s", e.Category, e.Item)
		if e.Field != "" {
			s += ":" + e.Field
		}
		parts = append(parts, s)
	}

	return strings.Join(parts, ",")
}

func (l *filterList) Set(value string) error {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) < 2 {
		return fmt.Errorf("filter %q: want cat:item or cat:item:field", value)
	}
	cat, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("filter %q: bad category: %v", value, err)
	}
	entry := config.FilterEntry{Category: cat, Item: parts[1]}
	if len(parts) == 3 {
		entry.Field = parts[2]
	}
	l.entries = append(l.entries, entry)

	return nil
}
