package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/npezzotti/go-karaoke/internal/client"
	"github.com/npezzotti/go-karaoke/internal/types"
)

var (
	baseURL   string
	joinCode  string
	password  string
	guestName string
	email     string
	userPass  string
)

func main() {
	flag.StringVar(&baseURL, "url", "http://localhost:8000", "karaoke server url")
	flag.StringVar(&joinCode, "code", "", "party join code")
	flag.StringVar(&password, "password", "", "party password")
	flag.StringVar(&guestName, "guest", "", "guest display name")
	flag.StringVar(&email, "email", "", "account email, to watch as a signed-in member")
	flag.StringVar(&userPass, "user-password", "", "account password")
	flag.Parse()

	logger := log.New(os.Stderr, "[partywatch] ", log.LstdFlags)

	if joinCode == "" || password == "" {
		logger.Fatal("-code and -password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.NewClient(baseURL)
	if err != nil {
		logger.Fatal("client:", err)
	}

	if email != "" {
		u, err := c.Login(ctx, email, userPass)
		if err != nil {
			logger.Fatal("login:", err)
		}
		logger.Printf("signed in as %s", u.Username)
		guestName = ""
	}

	p, err := c.JoinParty(ctx, joinCode, password, guestName)
	if err != nil {
		logger.Fatal("join:", err)
	}
	logger.Printf("joined %q hosted by %s", p.Name, p.HostName)

	store := client.NewStore(func(queue []types.Song) {
		printQueue(os.Stdout, p.Name, queue)
	})

	syncer := client.NewSyncer(logger, c, store, p.Id)
	if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("sync:", err)
	}

	if store.Ended() {
		fmt.Println("the party has ended")
	}
}

func printQueue(w io.Writer, partyName string, queue []types.Song) {
	fmt.Fprintf(w, "\n%s: %d in queue\n", partyName, len(queue))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, s := range queue {
		fmt.Fprintf(tw, "%d.\t%s\t%s\n", i+1, s.Title, s.AddedByName)
	}
	tw.Flush()
}
