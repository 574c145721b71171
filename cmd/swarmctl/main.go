// cmd/swarmctl/main.go
//
// swarmctl is a command-line client exercising the send, receive, and
// open-group paths end to end against a configured seed list.
//
// Usage:
//
//	swarmctl keygen --key-file identity.key
//	swarmctl send --key-file identity.key --to <pubkey-hex> --body "hello" --db swarmctl.db
//	swarmctl receive --key-file identity.key --db swarmctl.db [--long-poll]
//	swarmctl status --db swarmctl.db
//	swarmctl og-post --key-file identity.key --server <url> --channel 1 --body "hello"
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ssd-technologies/swarmnet/internal/identity"
	"github.com/ssd-technologies/swarmnet/internal/netctx"
	"github.com/ssd-technologies/swarmnet/internal/sendpath"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "keygen":
		cmdKeygen(os.Args[2:])
	case "send":
		cmdSend(os.Args[2:])
	case "receive":
		cmdReceive(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "og-post":
		cmdOpenGroupPost(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: swarmctl <command> [flags]

Commands:
  keygen    Generate an Ed25519 identity and write it to a key file
  send      Send a message to a public key
  receive   Poll for new messages addressed to a public key
  status    Bootstrap the random pool and report its size
  og-post   Post a message to an open-group channel

Run 'swarmctl <command> --help' for details on each command.
`)
}

func cmdKeygen(args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	keyFile := fs.String("key-file", "", "path to write the generated key seed (required)")
	fs.Parse(args) //nolint:errcheck

	if *keyFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --key-file is required")
		fs.Usage()
		os.Exit(1)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatalf("generate keypair: %v", err)
	}
	if err := os.WriteFile(*keyFile, priv.Seed(), 0600); err != nil {
		log.Fatalf("write key file: %v", err)
	}

	fmt.Printf("identity created\n")
	fmt.Printf("  public key: %s\n", hex.EncodeToString(pub))
	fmt.Printf("  short id:   %s\n", identity.ShortID(pub))
	fmt.Printf("  key file:   %s\n", *keyFile)
}

func cmdSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	keyFile := fs.String("key-file", "", "path to the sender's key seed (required)")
	to := fs.String("to", "", "recipient public key, hex (required)")
	body := fs.String("body", "", "message body (required)")
	dbPath := fs.String("db", "", "sqlite database path (empty for in-memory only)")
	ttl := fs.Int64("ttl", int64(24*time.Hour/time.Second), "message TTL in seconds")
	ping := fs.Bool("ping", false, "force direct peer-to-peer delivery even if the peer is not marked online")
	fs.Parse(args) //nolint:errcheck

	if *keyFile == "" || *to == "" || *body == "" {
		fmt.Fprintln(os.Stderr, "Error: --key-file, --to, and --body are required")
		fs.Usage()
		os.Exit(1)
	}

	pub, priv := loadKeypair(*keyFile)
	nc, err := netctx.New(netctx.Config{PublicKey: pub, PrivateKey: priv, DBPath: *dbPath})
	if err != nil {
		log.Fatalf("build network context: %v", err)
	}
	defer nc.Close()

	msg := sendpath.Message{
		Destination: *to,
		Body:        []byte(*body),
		TTL:         *ttl,
		Timestamp:   time.Now().Unix(),
		Ping:        *ping,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	futures, err := nc.Send.Send(ctx, msg)
	if err != nil {
		log.Fatalf("send: %v", err)
	}
	if futures == nil {
		fmt.Println("delivered directly over an existing peer connection")
		return
	}

	for i, f := range futures {
		resp, err := f.Wait(ctx)
		if err != nil {
			fmt.Printf("snode %d: %v\n", i, err)
			continue
		}
		fmt.Printf("snode %d: accepted (%v)\n", i, resp)
	}
}

func cmdReceive(args []string) {
	fs := flag.NewFlagSet("receive", flag.ExitOnError)
	keyFile := fs.String("key-file", "", "path to the recipient's key seed (required)")
	dbPath := fs.String("db", "", "sqlite database path (empty for in-memory only)")
	longPoll := fs.Bool("long-poll", false, "use the long-polling GetMessages variant")
	fs.Parse(args) //nolint:errcheck

	if *keyFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --key-file is required")
		fs.Usage()
		os.Exit(1)
	}

	pub, priv := loadKeypair(*keyFile)
	nc, err := netctx.New(netctx.Config{PublicKey: pub, PrivateKey: priv, DBPath: *dbPath})
	if err != nil {
		log.Fatalf("build network context: %v", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	envelopes, err := nc.Receive.GetMessages(ctx, hex.EncodeToString(pub), *longPoll)
	if err != nil {
		log.Fatalf("receive: %v", err)
	}

	fmt.Printf("%d new message(s)\n", len(envelopes))
	for i, env := range envelopes {
		fmt.Printf("  %d: %s\n", i, string(env.Data))
	}
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dbPath := fs.String("db", "", "sqlite database path (empty for in-memory only)")
	fs.Parse(args) //nolint:errcheck

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatalf("generate ephemeral identity: %v", err)
	}
	nc, err := netctx.New(netctx.Config{PublicKey: pub, PrivateKey: priv, DBPath: *dbPath})
	if err != nil {
		log.Fatalf("build network context: %v", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := nc.Discovery.EnsurePool(ctx); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	fmt.Printf("pool size:  %d\n", nc.PoolSize())
	fmt.Printf("difficulty: %d\n", nc.Difficulty())
}

func cmdOpenGroupPost(args []string) {
	fs := flag.NewFlagSet("og-post", flag.ExitOnError)
	keyFile := fs.String("key-file", "", "path to the poster's key seed (required)")
	server := fs.String("server", "", "open-group server URL (required)")
	channel := fs.String("channel", "1", "channel id")
	body := fs.String("body", "", "message body (required)")
	fs.Parse(args) //nolint:errcheck

	if *keyFile == "" || *server == "" || *body == "" {
		fmt.Fprintln(os.Stderr, "Error: --key-file, --server, and --body are required")
		fs.Usage()
		os.Exit(1)
	}

	pub, priv := loadKeypair(*keyFile)
	nc, err := netctx.New(netctx.Config{PublicKey: pub, PrivateKey: priv})
	if err != nil {
		log.Fatalf("build network context: %v", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg, err := nc.OpenGroup.PostMessage(ctx, *server, *channel, priv, *body, time.Now().Unix())
	if err != nil {
		log.Fatalf("post message: %v", err)
	}
	fmt.Printf("posted message %d at %s\n", msg.ServerID, msg.ServerTimestamp.Format(time.RFC3339))
}

// loadKeypair loads an Ed25519 keypair from a 32-byte seed file written by
// "swarmctl keygen".
func loadKeypair(keyFile string) (ed25519.PublicKey, ed25519.PrivateKey) {
	seed, err := os.ReadFile(keyFile)
	if err != nil {
		log.Fatalf("read key file: %v", err)
	}
	if len(seed) != ed25519.SeedSize {
		log.Fatalf("invalid key file: expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return pub, priv
}
