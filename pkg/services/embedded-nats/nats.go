package embeddednats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
	"stand-resolver/pkg/shared"
)

type Config struct {
	// Port is the client port; server.RANDOM_PORT picks a free one.
	Port            int
	DataDir         string
	MaxMemory       int64
	MaxFileStore    int64
	JetStreamDomain string
	// Quiet disables the server's own logging.
	Quiet bool
}

type EmbeddedNATS struct {
	server  *server.Server
	nc      *nats.Conn
	js      nats.JetStreamContext
	config  *Config
	log     *zap.Logger
	streams map[string]*StreamConfig
}

type StreamConfig struct {
	Name            string
	Subjects        []string
	Retention       nats.RetentionPolicy
	MaxMsgs         int64
	MaxBytes        int64
	MaxAge          time.Duration
	MaxMsgSize      int32
	Replicas        int
	DuplicateWindow time.Duration
	AllowDirect     bool
	DiscardPolicy   nats.DiscardPolicy
}

func DefaultConfig() *Config {
	return &Config{
		Port:            4222,
		DataDir:         "./data/nats",
		MaxMemory:       256 * 1024 * 1024,      // 256MB
		MaxFileStore:    2 * 1024 * 1024 * 1024, // 2GB
		JetStreamDomain: "stands",
	}
}

func New(cfg *Config, log *zap.Logger) (*EmbeddedNATS, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &EmbeddedNATS{
		config:  cfg,
		log:     logger.OrNop(log).Named("nats"),
		streams: make(map[string]*StreamConfig),
	}, nil
}

func (en *EmbeddedNATS) Start() error {
	opts := &server.Options{
		Port:               en.config.Port,
		JetStream:          true,
		StoreDir:           en.config.DataDir,
		JetStreamMaxMemory: en.config.MaxMemory,
		JetStreamMaxStore:  en.config.MaxFileStore,
		JetStreamDomain:    en.config.JetStreamDomain,
		NoSigs:             true,
		NoLog:              en.config.Quiet,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return errors.Wrap(err, "failed to create NATS server")
	}

	if !en.config.Quiet {
		ns.ConfigureLogger()
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return errors.New("NATS server not ready for connections")
	}

	en.server = ns

	if err := en.connect(ns.ClientURL()); err != nil {
		ns.Shutdown()
		return errors.Wrap(err, "failed to connect to embedded NATS")
	}

	en.log.Info("embedded NATS server started", zap.String("url", ns.ClientURL()))
	return nil
}

func (en *EmbeddedNATS) connect(url string) error {
	nc, err := nats.Connect(url,
		nats.Name("stand-resolver"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			en.log.Error("NATS error", zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				en.log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			en.log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to connect to NATS")
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return errors.Wrap(err, "failed to create JetStream context")
	}

	en.nc = nc
	en.js = js
	return nil
}

func (en *EmbeddedNATS) AddStream(streamConfig *StreamConfig) error {
	if en.js == nil {
		return errors.New("JetStream not initialized")
	}

	config := &nats.StreamConfig{
		Name:        streamConfig.Name,
		Subjects:    streamConfig.Subjects,
		Retention:   streamConfig.Retention,
		MaxMsgs:     streamConfig.MaxMsgs,
		MaxBytes:    streamConfig.MaxBytes,
		MaxAge:      streamConfig.MaxAge,
		MaxMsgSize:  streamConfig.MaxMsgSize,
		Replicas:    streamConfig.Replicas,
		Duplicates:  streamConfig.DuplicateWindow,
		AllowDirect: streamConfig.AllowDirect,
		Discard:     streamConfig.DiscardPolicy,
	}

	// Update the stream if it exists, otherwise create it
	if _, err := en.js.StreamInfo(streamConfig.Name); err == nil {
		if _, err := en.js.UpdateStream(config); err != nil {
			return errors.Wrapf(err, "failed to update stream %s", streamConfig.Name)
		}
		en.log.Info("updated existing stream", zap.String("stream", streamConfig.Name))
	} else {
		if _, err := en.js.AddStream(config); err != nil {
			return errors.Wrapf(err, "failed to add stream %s", streamConfig.Name)
		}
		en.log.Info("created stream",
			zap.String("stream", streamConfig.Name),
			zap.Strings("subjects", streamConfig.Subjects))
	}

	en.streams[streamConfig.Name] = streamConfig
	return nil
}

// CreateStandStreams declares the resolution and report streams.
func (en *EmbeddedNATS) CreateStandStreams() error {
	streams := []StreamConfig{
		{
			Name:            shared.StreamResolutions,
			Subjects:        []string{shared.SubjectResolutionsAll},
			Retention:       nats.LimitsPolicy,
			MaxMsgs:         100000,
			MaxBytes:        128 * 1024 * 1024, // 128MB
			MaxAge:          7 * 24 * time.Hour,
			MaxMsgSize:      64 * 1024, // 64KB
			Replicas:        1,
			DuplicateWindow: 2 * time.Minute,
			AllowDirect:     true,
			DiscardPolicy:   nats.DiscardOld,
		},
		{
			Name:            shared.StreamReports,
			Subjects:        []string{shared.SubjectReportsAll},
			Retention:       nats.LimitsPolicy,
			MaxMsgs:         50000,
			MaxBytes:        64 * 1024 * 1024, // 64MB
			MaxAge:          30 * 24 * time.Hour,
			MaxMsgSize:      64 * 1024, // 64KB
			Replicas:        1,
			DuplicateWindow: 2 * time.Minute,
			AllowDirect:     true,
			DiscardPolicy:   nats.DiscardOld,
		},
	}

	for i := range streams {
		if err := en.AddStream(&streams[i]); err != nil {
			return err
		}
	}
	return nil
}

// StandCacheKV opens the shared stand cache bucket, creating it with the given
// entry TTL when it does not exist.
func (en *EmbeddedNATS) StandCacheKV(ttl time.Duration) (nats.KeyValue, error) {
	if en.js == nil {
		return nil, errors.New("JetStream not initialized")
	}

	kv, err := en.js.KeyValue(shared.BucketStandCache)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, nats.ErrBucketNotFound) {
		return nil, errors.Wrapf(err, "failed to open bucket %s", shared.BucketStandCache)
	}

	kv, err = en.js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      shared.BucketStandCache,
		Description: "shared stand resolution cache",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create bucket %s", shared.BucketStandCache)
	}
	en.log.Info("created key/value bucket", zap.String("bucket", shared.BucketStandCache), zap.Duration("ttl", ttl))
	return kv, nil
}

func (en *EmbeddedNATS) PublishWithDedup(ctx context.Context, subject string, data []byte, msgID string) error {
	if en.js == nil {
		return errors.New("JetStream not initialized")
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, msgID)

	if _, err := en.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return errors.Wrap(err, "failed to publish message")
	}
	return nil
}

// PublishEvent publishes event on its subject, deduplicated by event ID.
func (en *EmbeddedNATS) PublishEvent(ctx context.Context, event shared.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}
	return en.PublishWithDedup(ctx, event.Subject, data, event.ID)
}

func (en *EmbeddedNATS) CreateDurableConsumer(streamName, consumerName string, filterSubject string) error {
	config := &nats.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: filterSubject,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		MaxAckPending: 1000,
		DeliverPolicy: nats.DeliverAllPolicy,
		ReplayPolicy:  nats.ReplayInstantPolicy,
	}

	if _, err := en.js.ConsumerInfo(streamName, consumerName); err == nil {
		en.log.Debug("durable consumer already exists",
			zap.String("consumer", consumerName), zap.String("stream", streamName))
		return nil
	}

	if _, err := en.js.AddConsumer(streamName, config); err != nil {
		return errors.Wrapf(err, "failed to create consumer %s", consumerName)
	}

	en.log.Info("created durable consumer",
		zap.String("consumer", consumerName), zap.String("stream", streamName))
	return nil
}

// CreateStandConsumers declares the durable consumers the workers bind to.
func (en *EmbeddedNATS) CreateStandConsumers() error {
	if err := en.CreateDurableConsumer(shared.StreamResolutions, shared.ConsumerPatternLearner, shared.SubjectResolutionsAll); err != nil {
		return err
	}
	return en.CreateDurableConsumer(shared.StreamReports, shared.ConsumerReportModeration, shared.SubjectReportsAll)
}

// Provision declares the stand streams and consumers on a started server. On
// failure the server is shut down.
func (en *EmbeddedNATS) Provision(ctx context.Context) error {
	err := en.CreateStandStreams()
	if err == nil {
		err = en.CreateStandConsumers()
	}
	if err == nil {
		return nil
	}

	if shutdownErr := en.Shutdown(ctx); shutdownErr != nil {
		err = errors.WithSecondaryError(err, shutdownErr)
	}
	return err
}

func (en *EmbeddedNATS) Connection() *nats.Conn {
	return en.nc
}

func (en *EmbeddedNATS) JetStream() nats.JetStreamContext {
	return en.js
}

func (en *EmbeddedNATS) Shutdown(ctx context.Context) error {
	if en.nc != nil {
		if err := en.nc.Drain(); err != nil {
			en.nc.Close()
		}
	}

	if en.server != nil {
		en.server.Shutdown()
		done := make(chan struct{})
		go func() {
			en.server.WaitForShutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	en.log.Info("embedded NATS server stopped")
	return nil
}

func (en *EmbeddedNATS) HealthCheck() error {
	if en.nc == nil {
		return errors.New("NATS connection not initialized")
	}

	if !en.nc.IsConnected() {
		return errors.New("NATS not connected")
	}

	if en.server != nil && !en.server.Running() {
		return errors.New("NATS server not running")
	}

	return nil
}
