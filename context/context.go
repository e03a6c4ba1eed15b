package context

import (
	"fmt"
	"os"
	"runtime"

	"github.com/PlakarLabs/blobbackup/compression"
	"github.com/PlakarLabs/blobbackup/config"
	"github.com/PlakarLabs/blobbackup/encryption"
	"github.com/PlakarLabs/blobbackup/hashing"
	"github.com/PlakarLabs/blobbackup/index"
	"github.com/PlakarLabs/blobbackup/logging"
	"github.com/PlakarLabs/blobbackup/packfile"
	"github.com/PlakarLabs/blobbackup/repository"
	"github.com/PlakarLabs/blobbackup/storage"
	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

type Options struct {
	ForceReset bool
}

// Context owns every component of a single run. It is built once by New and
// torn down by Close.
type Context struct {
	config *config.Config
	logger *logging.Logger

	store      *storage.Store
	cipher     *encryption.Cipher
	repository *repository.Repository
	monitor    *index.Monitor
	index      *index.Index
	packer     *packfile.Packer
	chunkIDer  *hashing.ChunkIDer

	runID           uuid.UUID
	machineID       string
	hostname        string
	operatingSystem string
	architecture    string
	processID       int
}

func New(cfg *config.Config, logger *logging.Logger, operatorKey []byte, opts Options) (*Context, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	tier, err := storage.ParseTier(cfg.AccessTier)
	if err != nil {
		return nil, err
	}
	codecs := compression.NewRegistry(compression.NewSevenZip(cfg.SevenZip.Path, cfg.SevenZipTimeout))
	tag, err := compression.ParseTag(cfg.Compression)
	if err != nil {
		return nil, err
	}
	codec, err := codecs.Lookup(tag)
	if err != nil {
		return nil, err
	}
	chunkIDer, err := hashing.NewChunkIDer(cfg.Hashing)
	if err != nil {
		return nil, err
	}
	cipher, err := encryption.NewCipher(operatorKey)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if cfg.CreateContainer {
		err = store.Create(cfg.Location)
	} else {
		err = store.Open(cfg.Location)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Location, err)
	}

	ctx := &Context{
		config:          cfg,
		logger:          logger,
		store:           store,
		cipher:          cipher,
		chunkIDer:       chunkIDer,
		runID:           uuid.New(),
		operatingSystem: runtime.GOOS,
		architecture:    runtime.GOARCH,
		processID:       os.Getpid(),
	}
	ctx.repository = repository.New(store, cipher, repository.Options{
		Folder:         cfg.Folder,
		Tier:           tier,
		Codec:          codec,
		Codecs:         codecs,
		CompressAlways: cfg.CompressAlways,
		DryRun:         cfg.DryRun,
		Logger:         logger,
	})
	ctx.monitor = index.NewMonitor(ctx.repository)
	ctx.index = index.New(ctx.repository, ctx.monitor, index.Options{
		ForceReset: opts.ForceReset,
		Logger:     logger,
	})
	ctx.packer = packfile.NewPacker(ctx.index, ctx.repository, cfg.ShardSizeBytes, logger)

	if machineID, err := machineid.ProtectedID("blobbackup"); err == nil {
		ctx.machineID = machineID
	}
	if hostname, err := os.Hostname(); err == nil {
		ctx.hostname = hostname
	}

	logger.Trace("context", "run %s on %s (%s/%s, pid %d, machine %s)",
		ctx.runID, ctx.hostname, ctx.operatingSystem, ctx.architecture, ctx.processID, ctx.machineID)
	return ctx, nil
}

func (c *Context) Close() error {
	return c.repository.Close()
}

func (c *Context) Config() *config.Config {
	return c.config
}

func (c *Context) Logger() *logging.Logger {
	return c.logger
}

func (c *Context) Store() *storage.Store {
	return c.store
}

func (c *Context) Cipher() *encryption.Cipher {
	return c.cipher
}

func (c *Context) Repository() *repository.Repository {
	return c.repository
}

func (c *Context) Monitor() *index.Monitor {
	return c.monitor
}

func (c *Context) Index() *index.Index {
	return c.index
}

func (c *Context) Packer() *packfile.Packer {
	return c.packer
}

func (c *Context) ChunkIDer() *hashing.ChunkIDer {
	return c.chunkIDer
}

func (c *Context) RunID() uuid.UUID {
	return c.runID
}

func (c *Context) MachineID() string {
	return c.machineID
}

func (c *Context) Hostname() string {
	return c.hostname
}

func (c *Context) OperatingSystem() string {
	return c.operatingSystem
}

func (c *Context) Architecture() string {
	return c.architecture
}

func (c *Context) ProcessID() int {
	return c.processID
}
