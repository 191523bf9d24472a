package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liveproto/danmaku-client/internal/config"
	"github.com/liveproto/danmaku-client/internal/connection"
	"github.com/liveproto/danmaku-client/internal/dispatch"
	"github.com/liveproto/danmaku-client/internal/events"
	"github.com/liveproto/danmaku-client/internal/logging"
	"github.com/liveproto/danmaku-client/internal/serverinfo"
	"github.com/liveproto/danmaku-client/internal/transport"
)

func connectCmd() *cobra.Command {
	var (
		room      int64
		uid       int64
		heartbeat time.Duration
		transKind string
		addr      string
		token     string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Join a room and print decoded events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Init(logging.Config{Level: logLevel, Format: logFormat, Output: "stdout"}); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			defer logging.Sync()

			opts := config.New(
				config.WithRoomID(room),
				config.WithUID(uid),
				config.WithHeartbeatInterval(heartbeat),
			)
			if err := opts.Validate(); err != nil {
				return err
			}

			host, port, err := splitHostPort(addr)
			if err != nil {
				return fmt.Errorf("parse --addr: %w", err)
			}
			provider := serverinfo.StaticProvider{Info: serverinfo.Info{Host: host, Port: port, Token: token}}

			var dialer transport.Dialer
			switch transKind {
			case "ws":
				dialer = transport.WebSocketDialer{}
			case "tcp":
				dialer = transport.TCPDialer{}
			default:
				return fmt.Errorf("unknown --transport %q (want tcp or ws)", transKind)
			}

			invoker := dispatch.NewInvoker(
				dispatch.Any(loggingHandler),
				dispatch.Any(printingHandler),
			)

			conn := connection.New(opts, provider, dialer, invoker)
			defer conn.Dispose()

			logging.Info("connecting", zap.Int64("room_id", room), zap.String("transport", transKind))
			if err := conn.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			logging.Info("connected", zap.Int64("room_id", room))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logging.Info("received shutdown signal")
			conn.Disconnect()
			return nil
		},
	}

	cmd.Flags().Int64Var(&room, "room", 0, "room id to join")
	cmd.Flags().Int64Var(&uid, "uid", 0, "viewer uid (0 joins anonymously)")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 30*time.Second, "heartbeat cadence")
	cmd.Flags().StringVar(&transKind, "transport", "tcp", "transport variant: tcp or ws")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7777", "server host:port")
	cmd.Flags().StringVar(&token, "token", "", "join auth token")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "log format: console or json")
	cmd.MarkFlagRequired("room")

	return cmd
}

func loggingHandler(ctx context.Context, evt dispatch.Event) error {
	switch e := evt.(type) {
	case events.Connected:
		logging.Info("event: connected", zap.Time("time", e.Time))
	case events.Disconnected:
		logging.Info("event: disconnected", zap.Time("time", e.Time), zap.Error(e.Err))
	case events.Popularity:
		logging.Debug("event: popularity", zap.Uint32("value", e.Value))
	case events.RawData:
		logging.Debug("event: raw_data", zap.Int("bytes", len(e.JSON)))
	}
	return nil
}

func printingHandler(ctx context.Context, evt dispatch.Event) error {
	switch e := evt.(type) {
	case events.Popularity:
		fmt.Printf("[popularity] %d\n", e.Value)
	case events.RawData:
		fmt.Printf("[message] %s\n", e.JSON)
	}
	return nil
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
