package store

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vinaysb/mindcare-navigator/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeDocument Mode = "document"
	ModeFile     Mode = "file"
)

const probeTimeout = 2 * time.Second

// Select probes the tiers in order and returns the first one that answers,
// falling through to the local file which always works. The choice is
// sticky for the process lifetime; there is no background re-probe.
func Select(ctx context.Context, cfg config.Config) (Store, Mode) {
	if s, err := openPrimary(ctx, cfg.DBDSN); err == nil {
		log.Printf("store: using primary database")
		return s, ModePrimary
	} else {
		log.Printf("store: primary unreachable, trying document tier: %v", err)
	}

	if s, err := openDocument(ctx, cfg); err == nil {
		log.Printf("store: using document tier at %s", cfg.RedisAddr)
		return s, ModeDocument
	} else {
		log.Printf("store: document tier unreachable, degrading to local file: %v", err)
	}

	log.Printf("store: using local file %s", cfg.StoreFile)
	return NewFileStore(cfg.StoreFile), ModeFile
}

func openPrimary(ctx context.Context, dsn string) (*SQLStore, error) {
	// SkipInitializeWithVersion keeps gorm.Open from dialing on its own;
	// the bounded ping below is the only probe.
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       dsn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return NewSQLStore(db), nil
}

func openDocument(ctx context.Context, cfg config.Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewRedisStore(rdb), nil
}
