// Command node runs a scorechain sequencer and provides key tooling for
// operators and game servers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"

	"github.com/tolelom/scorechain/config"
	"github.com/tolelom/scorechain/consensus"
	"github.com/tolelom/scorechain/core"
	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/indexer"
	"github.com/tolelom/scorechain/internal/obslog"
	"github.com/tolelom/scorechain/rpc"
	"github.com/tolelom/scorechain/storage"
	"github.com/tolelom/scorechain/vm"
	"github.com/tolelom/scorechain/wallet"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/tolelom/scorechain/vm/modules/control"
	_ "github.com/tolelom/scorechain/vm/modules/economy"
	_ "github.com/tolelom/scorechain/vm/modules/faucet"
	_ "github.com/tolelom/scorechain/vm/modules/identity"
	_ "github.com/tolelom/scorechain/vm/modules/lottery"
	_ "github.com/tolelom/scorechain/vm/modules/registry"
	_ "github.com/tolelom/scorechain/vm/modules/results"
)

// passwordEnv holds the keystore password (not a CLI flag; flags leak via ps).
const passwordEnv = "SCORECHAIN_PASSWORD"

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to config file (.json, .yaml or .yml)",
		Value: "config.yaml",
	}
	keyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "path to keystore file",
		Value: "sequencer.key",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "scorechain"
	app.Usage = "game result ledger node"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "start the sequencer and RPC server",
			Flags:  []cli.Flag{configFlag, keyFlag},
			Action: runNode,
		},
		{
			Name:   "genkey",
			Usage:  "generate a new key and write it to the keystore",
			Flags:  []cli.Flag{keyFlag},
			Action: genKey,
		},
		{
			Name:  "dumpconfig",
			Usage: "write the default configuration to a file",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "out", Value: "config.yaml", Usage: "output path"},
			},
			Action: func(c *cli.Context) error {
				return config.Save(config.DefaultConfig(), c.String("out"))
			},
		},
		{
			Name:  "sign-result",
			Usage: "sign a game result with a game server key and print the payload",
			Flags: []cli.Flag{
				keyFlag,
				cli.StringFlag{Name: "player", Usage: "player public key hex"},
				cli.StringFlag{Name: "game", Usage: "game id"},
				cli.Uint64Flag{Name: "score", Usage: "achieved score"},
				cli.BoolFlag{Name: "win", Usage: "whether the player won"},
				cli.Uint64Flag{Name: "nonce", Usage: "result nonce chosen by the game server"},
			},
			Action: signResult,
		},
	}
	app.Action = runNode
	app.Flags = []cli.Flag{configFlag, keyFlag}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func password() string {
	pw := os.Getenv(passwordEnv)
	if pw == "" {
		obslog.L().Warn(passwordEnv + " not set; keystore uses an empty password")
	}
	return pw
}

func genKey(c *cli.Context) error {
	w, err := wallet.Generate("")
	if err != nil {
		return err
	}
	path := c.String("key")
	if err := wallet.SaveKey(path, password(), w.PrivKey()); err != nil {
		return err
	}
	fmt.Printf("Generated key. Public key (address): %s\n", w.PubKey())
	fmt.Printf("Saved to: %s\n", path)
	return nil
}

func signResult(c *cli.Context) error {
	if c.String("player") == "" || c.String("game") == "" {
		return errors.New("--player and --game are required")
	}
	priv, err := wallet.LoadKey(c.String("key"), password())
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}
	p := wallet.New("", priv).SignResult(c.String("player"), c.String("game"), c.Uint64("score"), c.Bool("win"), c.Uint64("nonce"))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return storage.NewSQLiteDB(cfg.StoragePath())
	case config.BackendPostgres:
		return storage.NewPostgresDB(cfg.Storage.URL)
	default:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir data dir: %w", err)
		}
		return storage.NewLevelDB(cfg.StoragePath())
	}
}

func runNode(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := obslog.Init(obslog.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer obslog.Sync()
	log := obslog.L().Named("node")

	// ---- load sequencer key ----
	privKey, err := wallet.LoadKey(c.String("key"), password())
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	// ---- open DB ----
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	// State, blocks and indexes share one DB under different key prefixes.
	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(storage.NewBlockStore(db))
	if err := bc.Init(); err != nil {
		return fmt.Errorf("blockchain init: %w", err)
	}

	// ---- genesis block (if fresh chain) ----
	if bc.Tip() == nil {
		genesis, err := config.CreateGenesisBlock(cfg, state, privKey)
		if err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		if err := bc.AddBlock(genesis); err != nil {
			return fmt.Errorf("add genesis: %w", err)
		}
		log.Info("genesis block committed", zap.String("hash", genesis.Hash))
	}
	if got := bc.ChainID(); got != cfg.Genesis.ChainID {
		return fmt.Errorf("stored chain is %q but config says %q", got, cfg.Genesis.ChainID)
	}

	// ---- events ----
	emitter := events.NewEmitter()
	if cfg.Redis.URL != "" {
		pub, err := events.NewRedisPublisher(cfg.Redis.URL, cfg.Redis.Stream, cfg.Redis.MaxLen)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer pub.Close()
		pub.Attach(emitter)
		log.Info("publishing events to redis", zap.String("stream", cfg.Redis.Stream))
	}
	idx := indexer.New(db, emitter)

	// ---- sequencer ----
	mempool := core.NewMempool(cfg.Genesis.ChainID)
	exec := vm.NewExecutor(state, emitter, vm.WithRandomSource(vm.SequencerRandom(privKey)))
	poa := consensus.New(cfg, bc, mempool, exec, emitter, privKey)

	// ---- RPC ----
	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	handler := rpc.NewHandler(bc, mempool, exec, poa, idx, cfg.Genesis.ChainID)
	rpcServer := rpc.NewServer(rpcAddr, handler, rpc.NewStream(emitter), cfg.RPCAuthToken, tlsCfg)
	if err := rpcServer.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}
	if cfg.RPCAuthToken != "" {
		log.Info("rpc bearer token authentication enabled")
	}

	// ---- block production loop ----
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poa.Run(cfg.BlockTime(), done)
	}()
	log.Info("sequencer running",
		zap.String("sequencer", poa.Sequencer()),
		zap.String("chain_id", cfg.Genesis.ChainID),
		zap.Int64("height", bc.Height()),
	)

	// ---- graceful shutdown ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down")

	// Stop accepting transactions before the final seal.
	if err := rpcServer.Stop(); err != nil {
		log.Warn("rpc stop", zap.Error(err))
	}
	close(done)
	wg.Wait()

	log.Info("shutdown complete", zap.Int64("height", bc.Height()))
	return nil
}
