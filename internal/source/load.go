package source

import (
	"bytes"
	"context"
	"fmt"

	"trackgeo/internal/blob"
	"trackgeo/internal/config"
	"trackgeo/internal/infra/tabledb"

	"go.uber.org/zap"
)

// Load fetches the document configured in cfg.Input. It returns nil, nil when
// no input is configured.
func Load(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Input.Kind {
	case config.InputBlob:
		store, err := blob.Open(ctx, cfg.BlobConfig())
		if err != nil {
			return nil, fmt.Errorf("open document store: %w", err)
		}
		logger.Debug("loading geometry document",
			zap.String("driver", string(store.Driver())),
			zap.String("key", cfg.Input.Key))
		return LoadBlob(ctx, store, cfg.Input.Key)
	case config.InputTable:
		db, err := tabledb.Open(ctx, TableConfig(cfg))
		if err != nil {
			return nil, err
		}
		defer db.Close()
		logger.Debug("loading legacy tables",
			zap.String("driver", string(db.Driver())),
			zap.String("setup", cfg.Input.Setup))
		s, err := db.Load(ctx, cfg.Input.Setup)
		if err != nil {
			return nil, err
		}
		return FromSetup(s)
	default:
		return nil, nil
	}
}

// TableConfig converts the input configuration to the table database one.
func TableConfig(cfg *config.Config) tabledb.Config {
	t := cfg.Input.Table
	return tabledb.Config{Driver: tabledb.Driver(t.Driver), Path: t.Path, DSN: t.DSN}
}

// LoadBlob reads and decodes the document stored at key.
func LoadBlob(ctx context.Context, store blob.Store, key string) (*Document, error) {
	data, info, err := blob.ReadDocument(ctx, store, key)
	if err != nil {
		return nil, err
	}
	return Decode(data, info.Format())
}

// SaveBlob stores a new document at key in the given format.
func SaveBlob(ctx context.Context, store blob.Store, key string, doc *Document, format blob.Format) (blob.Info, error) {
	data, err := doc.Encode(format)
	if err != nil {
		return blob.Info{}, err
	}
	return store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: format.ContentType(),
		Metadata:    map[string]string{"geometry": doc.Name},
	})
}

// SaveTables writes doc as the legacy setup of the same name.
func SaveTables(ctx context.Context, cfg *config.Config, doc *Document) error {
	s, err := ToSetup(doc)
	if err != nil {
		return err
	}
	db, err := tabledb.Open(ctx, TableConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Save(ctx, s)
}
