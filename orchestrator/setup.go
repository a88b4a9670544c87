package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lgadye/warn-monitor/common"
	"github.com/lgadye/warn-monitor/config"
	"github.com/lgadye/warn-monitor/deduplication"
	"github.com/lgadye/warn-monitor/notify"
	"github.com/lgadye/warn-monitor/warnfeed"
)

// Build wires a Monitor from configuration. The returned close function
// releases every connection opened here and is safe to call once.
func Build(ctx context.Context, cfg config.Config) (*Monitor, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Printf("Warning: close failed: %v", err)
			}
		}
	}

	backend, err := buildBackend(ctx, cfg, &closers)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	locker, err := buildLocker(cfg, &closers)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	notifier, err := buildNotifier(cfg, &closers)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	source := warnfeed.NewClient(cfg.WarnPageURL, cfg.HTTPTimeout, cfg.DownloadTimeout)
	store := deduplication.NewStore(backend)
	log.Printf("State backend: %s; notifier: %s", store.BackendName(), notifier.Name())

	return NewMonitor(cfg, source, store, locker, notifier), closeAll, nil
}

func buildBackend(ctx context.Context, cfg config.Config, closers *[]func() error) (deduplication.Backend, error) {
	switch cfg.StateBackend {
	case config.BackendS3:
		client, err := common.NewS3(ctx, common.S3Config{
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init S3 client: %w", err)
		}
		return deduplication.NewS3Backend(client, cfg.S3Bucket, cfg.S3Key), nil

	case config.BackendMongo:
		backend, err := deduplication.NewMongoBackend(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, backend.Close)
		return backend, nil

	case config.BackendFile:
		return deduplication.NewFileBackend(cfg.StateFile), nil
	}
	return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
}

func buildLocker(cfg config.Config, closers *[]func() error) (deduplication.Locker, error) {
	if cfg.RedisAddr != "" {
		lock, err := deduplication.NewRedisLock(deduplication.RedisLockConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			Key:      cfg.LockKey,
			TTL:      cfg.LockTTL,
		})
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, lock.Close)
		log.Printf("Run lock: redis %s key %s", cfg.RedisAddr, cfg.LockKey)
		return lock, nil
	}

	if cfg.StateBackend == config.BackendFile {
		return deduplication.NewFileLocker(cfg.StateFile + ".lock"), nil
	}

	log.Printf("Warning: no run lock configured for %s backend; set REDIS_ADDR if runs can overlap", cfg.StateBackend)
	return deduplication.NoopLocker{}, nil
}

func buildNotifier(cfg config.Config, closers *[]func() error) (notify.Notifier, error) {
	var sinks notify.Multi

	if cfg.EmailAlerts {
		smtp := notify.SMTPConfig{
			Server:         cfg.SMTPServer,
			Port:           cfg.SMTPPort,
			SenderEmail:    cfg.SMTPSenderEmail,
			SenderPassword: cfg.SMTPSenderPassword,
			RecipientEmail: cfg.SMTPRecipientEmail,
		}
		if smtp.Complete() {
			email, err := notify.NewEmailNotifier(smtp)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, email)
		} else {
			log.Printf("Warning: email alerts enabled but SMTP config incomplete; skipping email")
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := notify.NewKafkaNotifier(notify.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, kafka.Close)
		sinks = append(sinks, kafka)
	}

	switch len(sinks) {
	case 0:
		log.Printf("Warning: no notification channel configured; alerts go to the log only")
		return notify.LogNotifier{}, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

// IsLocked reports whether err means another run holds the state lock.
func IsLocked(err error) bool {
	return errors.Is(err, deduplication.ErrLocked)
}
