package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/nullchain/app/services/node/handlers"
	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/nullchain/foundation/blockchain/signature"
	"github.com/ardanlabs/nullchain/foundation/blockchain/state"
	"github.com/ardanlabs/nullchain/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/nullchain/foundation/blockchain/worker"
	"github.com/ardanlabs/nullchain/foundation/events"
	"github.com/ardanlabs/nullchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			CorsOrigin      string        `conf:"default:*"`
		}
		State struct {
			DBPath       string `conf:"default:zblock/chain.db"`
			GenesisFile  string `conf:"default:zblock/genesis.json"`
			MinerAddress string
			MinerKey     string `conf:"help:path to a public key file the rewards are paid to"`
		}
		Mining struct {
			Enabled       bool   `conf:"default:false"`
			Continuous    bool   `conf:"default:true"`
			MaxIterations uint64 `conf:"default:0"`
			ProgressEvery uint64 `conf:"default:1000000"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "nullchain proof of work node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	gen, err := loadGenesis(cfg.State.GenesisFile)
	if err != nil {
		return err
	}

	miner, err := minerAddress(cfg.State.MinerAddress, cfg.State.MinerKey)
	if err != nil {
		return err
	}
	log.Infow("startup", "status", "miner", "address", miner.Address())

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	ldb, err := leveldb.New(cfg.State.DBPath, ev)
	if err != nil {
		return fmt.Errorf("opening chain database: %w", err)
	}

	st, err := state.New(state.Config{
		DB:           database.New(gen, ldb, ev),
		MinerAddress: miner,
		EvHandler:    ev,
	})
	if err != nil {
		ldb.Close()
		return err
	}
	defer st.Shutdown()

	// The worker registers itself with the state. Mining only starts when
	// it is signaled, either here or through the api.
	wrk := worker.Run(st, worker.Config{
		MaxIterations: cfg.Mining.MaxIterations,
		ProgressEvery: cfg.Mining.ProgressEvery,
		Continuous:    cfg.Mining.Continuous,
	}, ev)

	if cfg.Mining.Enabled {
		wrk.SignalStartMining()
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, st)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		State:      st,
		Evts:       evts,
		CorsOrigin: cfg.Web.CorsOrigin,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// =============================================================================

// loadGenesis reads the genesis file, falling back to the main chain
// parameters when the file does not exist.
func loadGenesis(path string) (genesis.Genesis, error) {
	if path == "" {
		return genesis.Default(), nil
	}

	gen, err := genesis.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return genesis.Default(), nil
		}
		return genesis.Genesis{}, fmt.Errorf("loading genesis: %w", err)
	}

	return gen, nil
}

// minerAddress resolves where block rewards are paid. A key file wins over
// an address.
func minerAddress(address string, keyPath string) (signature.PubKeyHash, error) {
	if keyPath != "" {
		pub, err := signature.LoadPublicKey(keyPath)
		if err != nil {
			return signature.PubKeyHash{}, fmt.Errorf("loading miner key: %w", err)
		}
		return signature.ToPubKeyHash(pub), nil
	}

	if address == "" {
		return signature.PubKeyHash{}, errors.New("a miner address or key file is required")
	}

	pkh, err := signature.ParseAddress(address)
	if err != nil {
		return signature.PubKeyHash{}, fmt.Errorf("parsing miner address: %w", err)
	}

	return pkh, nil
}
