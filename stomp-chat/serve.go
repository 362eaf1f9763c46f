package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gosuda.org/portal/portal/core/cryptoops"
	"gosuda.org/portal/sdk"
)

// transcriptServer publishes the transcript page locally and on portal relays.
type transcriptServer struct {
	clients   []*sdk.RDClient
	listeners []net.Listener
	httpSrv   *http.Server
	localAddr net.Addr
}

// serveTranscript publishes handler on the optional local port and on every
// configured portal relay.
func serveTranscript(ctx context.Context, handler http.Handler) (*transcriptServer, error) {
	srv := &transcriptServer{}

	urls := relayURLs(flagRelayURLs)
	if len(urls) > 0 {
		// Shared credential across all relay listeners
		cred := sdk.NewCredential()
		if flagCredKey != "" {
			key, err := base64.StdEncoding.DecodeString(flagCredKey)
			if err != nil {
				return nil, fmt.Errorf("decode cred key: %w", err)
			}
			cred2, err := cryptoops.NewCredentialFromPrivateKey(key)
			if err != nil {
				return nil, fmt.Errorf("new credential from private key: %w", err)
			}
			cred = cred2
		}

		for _, u := range urls {
			client, err := sdk.NewClient(func(c *sdk.RDClientConfig) { c.BootstrapServers = []string{u} })
			if err != nil {
				log.Error().Err(err).Str("url", u).Msg("[chat] new relay client failed")
				continue
			}
			srv.clients = append(srv.clients, client)
			ln, err := client.Listen(cred, flagRelayName, []string{"http/1.1"})
			if err != nil {
				log.Error().Err(err).Str("url", u).Msg("[chat] relay listen failed")
				continue
			}
			srv.listeners = append(srv.listeners, ln)
		}
	}

	for i, ln := range srv.listeners {
		idx := i
		go func() {
			if err := http.Serve(ln, handler); err != nil && !closedServe(err) && ctx.Err() == nil {
				log.Error().Err(err).Int("listener", idx).Msg("[chat] relay http error")
			}
		}()
	}

	// Optional local server on --port
	if flagPort >= 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", flagPort))
		if err != nil {
			srv.Close()
			return nil, fmt.Errorf("listen on port %d: %w", flagPort, err)
		}
		srv.localAddr = ln.Addr()
		srv.httpSrv = &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second, IdleTimeout: 60 * time.Second}
		log.Info().Msgf("[chat] serving transcript at http://%s", ln.Addr())
		go func() {
			if err := srv.httpSrv.Serve(ln); err != nil && !closedServe(err) {
				log.Warn().Err(err).Msg("[chat] local http stopped")
			}
		}()
	}
	return srv, nil
}

// Close stops the relay listeners and the local server.
func (s *transcriptServer) Close() {
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	for _, c := range s.clients {
		_ = c.Close()
	}
	if s.httpSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(sctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("[chat] http server shutdown error")
		}
	}
}

// closedServe reports whether err is how Serve returns after its listener
// was shut down on purpose.
func closedServe(err error) bool {
	return errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed)
}

// relayURLs flattens comma separated flag values and drops blanks.
func relayURLs(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, p := range strings.Split(r, ",") {
			if u := strings.TrimSpace(p); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}
