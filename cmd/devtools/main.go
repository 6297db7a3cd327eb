// Developer tools for the ingestion engine: print adapter specs and replay
// recorded data packs through the normalizer.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ingestflow/internal/adapter/binance"
	"ingestflow/internal/normalizer"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: devtools <command> [flags]

Commands:
  spec <venue>           Print the venue adapter's endpoint spec
  replay [flags] <file>  Replay a recorded JSONL pack through the normalizer

Replay flags:
  -venue   venue identifier stamped on replayed events (default "binance")
  -symbol  symbol passed to the normalizer (default "TEST")
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "spec":
		if len(os.Args) < 3 {
			usage()
		}
		if err := printSpec(os.Args[2]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "replay":
		fs := flag.NewFlagSet("replay", flag.ExitOnError)
		venue := fs.String("venue", "binance", "venue identifier for replayed events")
		symbol := fs.String("symbol", "TEST", "symbol passed to the normalizer")
		fs.Parse(os.Args[2:])
		if fs.NArg() < 1 {
			usage()
		}
		if err := replay(fs.Arg(0), *venue, *symbol); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		usage()
	}
}

func printSpec(venue string) error {
	switch venue {
	case "binance":
		data, err := yaml.Marshal(binance.AdapterSpec())
		if err != nil {
			return err
		}
		fmt.Printf("# adapter spec\n%s", data)
		return nil
	default:
		return fmt.Errorf("no spec available for venue %q", venue)
	}
}

func replay(path, venue, symbol string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		evt, err := normalizer.Normalize(venue, symbol, scanner.Bytes())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		data, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		fmt.Println(string(data))
	}
	return scanner.Err()
}
