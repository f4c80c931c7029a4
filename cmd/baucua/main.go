package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/baucua-game/baucua/internal/config"
	"github.com/baucua-game/baucua/internal/transport"
)

func main() {
	hostFlag := flag.Bool("host", false, "host a new room")
	joinFlag := flag.String("join", "", "room code to join")
	nameFlag := flag.String("name", "", "display name (defaults to $USER)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("bad config", "err", err)
	}

	name := *nameFlag
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "player"
	}

	net := transport.NewWS(cfg.ListenAddr, cfg.BrokerAddr, log)
	ctx := context.Background()

	switch {
	case *hostFlag:
		err = runHost(ctx, net, name, cfg, log)
	case *joinFlag != "":
		err = runJoin(ctx, net, *joinFlag, name, cfg, log)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalw("session ended", "err", err)
	}
}
