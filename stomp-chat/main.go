package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/stomp-chat/chat"
	"github.com/gosuda/stomp-chat/history"
	"github.com/gosuda/stomp-chat/transport"
	"github.com/gosuda/stomp-chat/tui"
	"github.com/gosuda/stomp-chat/web"
)

var rootCmd = &cobra.Command{
	Use:   "stomp-chat",
	Short: "Terminal client for the STOMP public chat room",
	RunE:  runChat,
}

var (
	flagServerURL string
	flagSockJS    bool
	flagUsername  string
	flagHeartBeat time.Duration
	flagDataPath  string
	flagBacklog   int
	flagPort      int
	flagRelayURLs []string
	flagRelayName string
	flagCredKey   string
	flagPlain     bool
	flagLogLevel  string
	flagLogFile   string
)

func init() {
	// .env must be loaded before flag defaults read the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("[chat] load .env")
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServerURL, "server-url", envOr("CHAT_SERVER_URL", "http://localhost:8080/ws"), "chat server STOMP endpoint (env CHAT_SERVER_URL)")
	flags.BoolVar(&flagSockJS, "sockjs", true, "use the SockJS websocket transport under --server-url")
	flags.StringVar(&flagUsername, "username", os.Getenv("CHAT_USERNAME"), "pre-filled display name (env CHAT_USERNAME)")
	flags.DurationVar(&flagHeartBeat, "heartbeat", 10*time.Second, "STOMP heart-beat interval (0 disables)")
	flags.StringVar(&flagDataPath, "data-path", "", "optional directory to persist the transcript via PebbleDB")
	flags.IntVar(&flagBacklog, "backlog", 50, "number of stored messages replayed on login")
	flags.IntVar(&flagPort, "port", -1, "optional local HTTP port for the transcript page (negative to disable)")
	flags.StringSliceVar(&flagRelayURLs, "relay-url", splitEnv("RELAY"), "portal relay URL(s) to publish the transcript page on (env RELAY)")
	flags.StringVar(&flagRelayName, "relay-name", "stomp-chat", "name advertised on the relay")
	flags.StringVar(&flagCredKey, "cred-key", "", "optional relay credential key (base64 encoded)")
	flags.BoolVar(&flagPlain, "plain", false, "line-based output instead of the full-screen UI")
	flags.StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&flagLogFile, "log-file", "", "write logs to this file (full-screen mode discards logs otherwise)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute chat command")
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	// Cancellation context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	closeLog, err := setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	dialer := &transport.Dialer{
		URL:          flagServerURL,
		SockJS:       flagSockJS,
		HeartBeat:    flagHeartBeat,
		CloseTimeout: 5 * time.Second,
	}

	transcript := web.NewTranscript()
	views := []chat.View{transcript}
	opts := []chat.Option{chat.WithBacklog(flagBacklog)}

	// Optional: open persistent store for the transcript
	var store *history.Store
	if flagDataPath != "" {
		s, err := history.Open(flagDataPath)
		if err != nil {
			log.Warn().Err(err).Msg("[chat] open store failed; running in memory only")
		} else {
			store = s
			opts = append(opts, chat.WithHistory(store))
		}
	}

	var ui *tui.UI
	if flagPlain {
		views = append(views, tui.NewPlainView(os.Stdout))
		opts = append(opts, chat.WithNotifier(bell{os.Stdout}))
	} else {
		ui = tui.New(ctx, flagUsername)
		views = append(views, ui)
		opts = append(opts, chat.WithNotifier(bell{os.Stderr}))
	}
	session := chat.NewSession(dialer, chat.Views(views...), opts...)

	srv, err := serveTranscript(ctx, web.NewHandler(flagRelayName, transcript))
	if err != nil {
		return err
	}

	if ui != nil {
		ui.Bind(session)
		err = ui.Run()
	} else {
		err = runPlain(ctx, session, flagUsername, os.Stdin)
	}

	if derr := session.Disconnect(); derr != nil {
		log.Warn().Err(derr).Msg("[chat] disconnect")
	}
	srv.Close()
	if store != nil {
		if cerr := store.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("[chat] store close error")
		}
	}
	log.Info().Msg("[chat] shutdown complete")
	return err
}

// runPlain logs in as username and sends every line of in until EOF,
// "/quit" or cancellation.
func runPlain(ctx context.Context, session *chat.Session, username string, in io.Reader) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("--username is required with --plain")
	}
	if err := session.Connect(ctx, username); err != nil {
		return err
	}

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return nil
			case "/reconnect":
				if err := session.Resume(ctx); err != nil {
					log.Warn().Err(err).Msg("[chat] reconnect failed")
				}
				continue
			}
			if err := session.Send(line); err != nil {
				log.Warn().Err(err).Msg("[chat] send failed")
			}
		}
	}
}

func setupLogger() (func(), error) {
	level, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	closeFn := func() {}
	switch {
	case flagLogFile != "":
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	case !flagPlain:
		// The full-screen UI owns the terminal.
		out = io.Discard
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closeFn, nil
}

// bell rings the terminal for messages from other users.
type bell struct{ w io.Writer }

func (b bell) Notify() { _, _ = io.WriteString(b.w, "\a") }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitEnv(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}
