// ABOUTME: Command line remote for sdplay players
// ABOUTME: Finds a player over mDNS or by address and sends one command
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/sdplay/sdplay-go/internal/discovery"
	"github.com/sdplay/sdplay-go/internal/remote"
)

var (
	addr    = flag.String("addr", "", "Player address host:port (skip mDNS)")
	timeout = flag.Duration("timeout", 10*time.Second, "How long to wait for discovery and replies")
	verbose = flag.Bool("v", false, "Log connection details")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] list|status|play N|stop|volume N|mute on|off|watch\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	target := *addr
	if target == "" {
		found, err := discover(*timeout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		target = found
	}

	client, err := remote.Dial(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", target, err)
		os.Exit(1)
	}
	defer client.Close()

	if err := run(client, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// discover returns the address of the first player that answers
func discover(timeout time.Duration) (string, error) {
	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	select {
	case p := <-disc.Players():
		fmt.Printf("Found %s at %s\n", p.Name, p.Addr())
		return p.Addr(), nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no player found after %s", timeout)
	}
}

func run(client *remote.Client, args []string) error {
	hello := client.Hello()

	switch args[0] {
	case "list":
		fmt.Printf("%s (%s %s)\n", hello.Name, hello.Product, hello.Version)
		for _, t := range hello.Tracks {
			fmt.Printf("  %02d  %-40s %s\n", t.Number, t.Name, t.Codec)
		}
		return nil

	case "status":
		return printReply(client)

	case "play":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if err := client.Play(n); err != nil {
			return err
		}
		return printReply(client)

	case "stop":
		if err := client.Stop(); err != nil {
			return err
		}
		return printReply(client)

	case "volume":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		if err := client.SetVolume(v); err != nil {
			return err
		}
		return printReply(client)

	case "mute":
		if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
			return fmt.Errorf("mute needs on or off")
		}
		if err := client.Mute(args[1] == "on"); err != nil {
			return err
		}
		return printReply(client)

	case "watch":
		for {
			select {
			case st, ok := <-client.Statuses:
				if !ok {
					return nil
				}
				printStatus(st)
			case e := <-client.Errors:
				fmt.Printf("error: %s: %s\n", e.Command, e.Error)
			}
		}

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a number", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", args[1], err)
	}
	return n, nil
}

// printReply waits briefly, then prints the latest status or the error the player sent back
func printReply(client *remote.Client) error {
	var last *remote.Status
	settle := time.After(300 * time.Millisecond)
	for {
		select {
		case st := <-client.Statuses:
			last = &st
		case e := <-client.Errors:
			return fmt.Errorf("player refused %s: %s", e.Command, e.Error)
		case <-settle:
			if last != nil {
				printStatus(*last)
			}
			return nil
		}
	}
}

func printStatus(st remote.Status) {
	if st.State != "playing" {
		fmt.Printf("%-7s volume %d%s\n", st.State, st.Volume, muteSuffix(st.Muted))
		return
	}
	fmt.Printf("%-7s %02d %s  %dHz %dch  %s  volume %d%s\n",
		st.State, st.Track, st.TrackName, st.SampleRate, st.Channels,
		(time.Duration(st.ElapsedMs) * time.Millisecond).Truncate(time.Second),
		st.Volume, muteSuffix(st.Muted))
}

func muteSuffix(muted bool) string {
	if muted {
		return " (muted)"
	}
	return ""
}
