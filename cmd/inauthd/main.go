// Command inauthd is the fleet authentication server: it loads its
// configuration and its own certificate, binds the administrative API and
// pub/sub proxy sockets, and serves until a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-zeromq/zmq4"
	"github.com/hashicorp/go-hclog"
	"github.com/intecture/inauth/internal/api"
	"github.com/intecture/inauth/internal/cache"
	"github.com/intecture/inauth/internal/config"
	"github.com/intecture/inauth/internal/proxy"
	"github.com/intecture/inauth/internal/service"
	"github.com/intecture/inauth/internal/store"
	"github.com/intecture/inauth/internal/wire"
	"github.com/intecture/inauth/internal/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "inauthd:", err)
		os.Exit(1)
	}
}

func run() error {
	var configDir string
	flag.StringVar(&configDir, "c", "", "configuration directory")
	flag.StringVar(&configDir, "config", "", "configuration directory")
	flag.Parse()

	log := hclog.New(&hclog.LoggerOptions{Name: "inauthd", Level: hclog.Info})

	dir, err := config.Locate(configDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	self, err := config.LoadOrGenerateServerCert(cfg)
	if err != nil {
		return err
	}

	st, err := store.NewDisk(cfg.CertPath, log.Named("store"))
	if err != nil {
		return err
	}
	c := cache.New()
	existing, err := st.Dump()
	if err != nil {
		log.Warn("certificate store had unreadable entries", "error", err)
	}
	for _, v := range existing {
		c.Insert(v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	curveServer, err := wire.CurveServerSecurity(self)
	if err != nil {
		return err
	}

	reqSocket, err := wire.Bind(ctx, zmq4.NewRouter, fmt.Sprintf("tcp://*:%d", cfg.APIPort), curveServer)
	if err != nil {
		return err
	}

	internalPub, err := wire.Bind(ctx, zmq4.NewXSub, "inproc://auth_publisher", nil)
	if err != nil {
		return err
	}
	externalPub, err := wire.Bind(ctx, zmq4.NewXPub, fmt.Sprintf("tcp://*:%d", cfg.UpdatePort), curveServer)
	if err != nil {
		return err
	}

	apiPublisher, err := wire.Dial(ctx, zmq4.NewPub, "inproc://auth_publisher", nil)
	if err != nil {
		return err
	}

	zapSocket, err := wire.Bind(ctx, zmq4.NewRep, "inproc://zeromq.zap.01", nil)
	if err != nil {
		return err
	}
	// The server answers ZAP inquiries for its own CURVE-secured sockets
	// directly off the authoritative cache, not a subscribed copy of it,
	// and self-trusts its own certificate from the first connection on.
	zapHandler := zap.New(zapSocket, nil, c, self, true, log.Named("zap"))
	zapCtx, zapCancel := context.WithCancel(ctx)
	defer zapCancel()
	go zapHandler.Run(zapCtx, nil)

	a := api.New(st, c, apiPublisher, log.Named("api"))
	p := proxy.New(internalPub, externalPub, nil, c, log.Named("proxy"))
	loop := service.New(reqSocket, a, p, log.Named("service"))

	loop.Start(ctx)
	log.Info("inauthd started", "api_port", cfg.APIPort, "update_port", cfg.UpdatePort)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	loop.Stop()
	loop.Wait()
	return nil
}
