// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pbxkit/softphone/internal/api"
	"github.com/pbxkit/softphone/internal/arbiter"
	"github.com/pbxkit/softphone/internal/config"
	"github.com/pbxkit/softphone/internal/event"
	"github.com/pbxkit/softphone/internal/notify"
	"github.com/pbxkit/softphone/internal/peer"
	"github.com/pbxkit/softphone/internal/push"
	"github.com/pbxkit/softphone/internal/session"
	"github.com/pbxkit/softphone/internal/store"
	"github.com/pbxkit/softphone/internal/util"
)

var (
	cfgPath  = flag.String("config", "config.json", "Path to the config file")
	showHelp = flag.Bool("h", false, "Show help")
	version  = flag.Bool("version", false, "Show version")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("softphone v%s\n", appVersion)
		return
	}
	if *showHelp {
		flag.Usage()
		return
	}

	if err := run(); err != nil {
		log.Fatalf("MAIN: %v", err)
	}
}

func run() error {
	cfg, created, err := config.Ensure(*cfgPath)
	if err != nil {
		return err
	}
	if created {
		log.Printf("MAIN: wrote default config to %s — fill in account settings", *cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Relative paths in the config resolve against the config file itself.
	cacheDir := util.ResolvePath(filepath.Dir(*cfgPath), cfg.Paths.CacheDir)
	st, err := store.Open(cacheDir)
	if err != nil {
		return err
	}
	defer st.Close()
	if n, err := st.PurgeExpired(); err == nil && n > 0 {
		log.Printf("STORE: purged %d expired entries", n)
	}

	hub := notify.NewHub()
	defer hub.Close()

	// Keep a short notification trail for post-mortem logging.
	history := notify.NewHistory(hub, 256)
	defer history.Close()

	apiClient := api.NewClient(cfg.Account.APIBase, cfg.Account.Token, st)

	machine := session.NewMachine(hub, session.Options{
		DefaultDevice:   arbiter.DeviceType(cfg.Account.DefaultDevice),
		OwnedExtensions: cfg.Account.Extensions,
		AutoOpenURL:     cfg.Behavior.AutoOpenURL,
	})

	// Resolve owned extensions from the API when the config leaves them
	// out. A failing API call is logged and skipped, never fatal.
	if len(cfg.Account.Extensions) == 0 && cfg.Account.APIBase != "" {
		fetchCtx, cancel := context.WithTimeout(ctx, util.DefaultFetchTimeout)
		exts, err := apiClient.UserEndpoints(fetchCtx)
		cancel()
		if err != nil {
			log.Printf("MAIN: fetch endpoints: %v", err)
		} else {
			owned := make([]string, 0, len(exts))
			hasSecondary := false
			for _, ex := range exts {
				owned = append(owned, ex.Exten)
				if ex.Online && !ex.Default {
					hasSecondary = true
				}
			}
			machine.SetOwnedExtensions(owned)
			machine.SetHasOnlineSecondary(hasSecondary)
			log.Printf("MAIN: user %s owns %d extension(s)", cfg.Account.Username, len(owned))
		}
	}

	// Push channel.
	pushClient := push.New(cfg.Push.URL, cfg.Account.Token, hub)
	pushClient.Start(ctx)
	defer pushClient.Close()

	events, cancelEvents := pushClient.Subscribe()
	defer cancelEvents()

	guard := push.NewRefreshGuard()
	go func() {
		for env := range events {
			machine.Dispatch(session.Envelope{Name: env.Name, Data: env.Data})

			// An extenUpdate may race the REST view of the call; refresh
			// it under the single-flight guard.
			if env.Name == event.TypeExtenUpdate && cfg.Account.APIBase != "" && guard.TryBegin() {
				go func() {
					defer guard.End()
					refreshCtx, cancel := context.WithTimeout(ctx, util.DefaultFetchTimeout)
					defer cancel()
					si, err := apiClient.CurrentSession(refreshCtx)
					if err != nil {
						log.Printf("MAIN: refresh session: %v", err)
						return
					}
					machine.ApplyRemoteStart(si.ConversationID, si.StartTime)
				}()
			}
		}
	}()

	// Preference hot-reload.
	watcher, err := config.Watch(*cfgPath, func(nc config.Config) {
		machine.SetDefaultDevice(arbiter.DeviceType(nc.Account.DefaultDevice))
	})
	if err != nil {
		log.Printf("MAIN: config watch: %v", err)
	} else {
		defer watcher.Close()
	}

	// Signaling-peer inactivity watchdog.
	deadline := time.Duration(cfg.Peer.WatchdogDeadlineMin) * time.Minute
	interval := time.Duration(cfg.Peer.WatchdogIntervalMin) * time.Minute
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				peer.CheckActivity(machine.LastActivity(), deadline, machine.IsIdle, func() {
					log.Printf("MAIN: signaling peer idle past deadline, safe to reinitialize")
				})
			}
		}
	}()

	// Log outbound notifications for operators running without a UI.
	notifCh, cancelNotif := hub.Subscribe()
	defer cancelNotif()
	go func() {
		for n := range notifCh {
			log.Printf("NOTIFY: %s", n.Type)
		}
	}()

	log.Printf("MAIN: softphone core running (push=%s)", cfg.Push.URL)
	<-ctx.Done()
	log.Printf("MAIN: shutting down (%d notifications this session)", len(history.Recent()))
	return nil
}
