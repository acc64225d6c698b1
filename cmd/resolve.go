package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xl-idp/reference-inn/internal/cache"
	"github.com/xl-idp/reference-inn/internal/fetcher"
	"github.com/xl-idp/reference-inn/internal/pipeline"
	"github.com/xl-idp/reference-inn/internal/proxy"
	"github.com/xl-idp/reference-inn/internal/registry"
	"github.com/xl-idp/reference-inn/internal/search"
	"github.com/xl-idp/reference-inn/internal/warehouse"
	"github.com/xl-idp/reference-inn/pkg/telegram"
	"github.com/xl-idp/reference-inn/pkg/translate"
	"github.com/xl-idp/reference-inn/pkg/xmlriver"
)

var (
	resolveFile     string
	resolveSheet    string
	resolveSkipRows int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve company mentions from an XLSX file",
	Long: `Reads company mentions from the first column of an XLSX file, resolves
each to a taxpayer identifier and canonical name, and writes a CSV audit
trail plus per-country JSON buckets. Finished rows are pushed to the
warehouse and a summary is sent to Telegram.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runResolve(ctx)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFile, "file", "", "path to XLSX file (required)")
	resolveCmd.Flags().StringVar(&resolveSheet, "sheet", "", "sheet name (defaults to the first sheet)")
	resolveCmd.Flags().IntVar(&resolveSkipRows, "skip-rows", 0, "header rows to skip")
	_ = resolveCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(ctx context.Context) error {
	notifier := initNotifier()
	xr := xmlriver.New(cfg.XMLRiver.User, cfg.XMLRiver.Key)

	if err := checkBalance(ctx, xr, notifier); err != nil {
		return err
	}

	store, err := initCache(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	pool, err := initProxyPool()
	if err != nil {
		return err
	}

	translator, err := translate.New(translate.Service(cfg.Translate.Service), translate.Config{
		YandexToken:    cfg.Translate.YandexToken,
		YandexFolderID: cfg.Translate.YandexFolderID,
	})
	if err != nil {
		return eris.Wrap(err, "init translator")
	}

	manager := registry.NewManager(store, initLookups(pool, translator)...)
	resolver := search.NewResolver(xr, manager, store)

	wh, err := warehouse.New(ctx, cfg.Warehouse.DatabaseURL)
	if err != nil {
		return eris.Wrap(err, "connect warehouse")
	}
	defer wh.Close()

	reference, err := wh.LoadReference(ctx)
	if err != nil {
		return eris.Wrap(err, "load declaration reference")
	}
	zap.L().Info("declaration reference loaded", zap.Int("companies", len(reference)))

	companies, err := fetcher.ReadCompanies(resolveFile, fetcher.XLSXOptions{
		SheetName: resolveSheet,
		SkipRows:  resolveSkipRows,
	})
	if err != nil {
		return eris.Wrap(err, "read companies")
	}
	if len(companies) == 0 {
		return eris.New("no company mentions in input file")
	}

	baseName := filepath.Base(resolveFile)
	csvPath := filepath.Join(
		cfg.Pipeline.OutputDir, "csv",
		fmt.Sprintf("%s_%s.csv", time.Now().Format("2006-01-02_15-04-05"), baseName),
	)
	sink, err := pipeline.NewCSVWriter(csvPath)
	if err != nil {
		return err
	}
	defer sink.Close()

	p := pipeline.New(manager, resolver, translator, store, reference, pipeline.Options{
		Workers:          cfg.Pipeline.Workers,
		RetryDelay:       time.Duration(cfg.Pipeline.RetryDelaySecs) * time.Second,
		OriginalFileName: baseName,
		Sink:             sink,
	})

	res, err := p.Run(ctx, companies)
	if err != nil {
		return eris.Wrap(err, "pipeline run")
	}

	if err := pipeline.WriteBuckets(cfg.Pipeline.OutputDir, baseName, res); err != nil {
		return err
	}

	inserted, err := wh.InsertRows(ctx, res.Rows)
	if err != nil {
		return eris.Wrap(err, "insert rows")
	}
	uploaded, err := wh.CountUploaded(ctx, baseName)
	if err != nil {
		return eris.Wrap(err, "count uploaded rows")
	}
	zap.L().Info("rows pushed to warehouse",
		zap.Int64("inserted", inserted),
		zap.Int64("uploaded_total", uploaded),
	)

	if err := notifier.Send(ctx, res.Summary(baseName, uploaded)); err != nil {
		zap.L().Warn("summary notification failed", zap.Error(err))
	}

	zap.L().Info("resolution finished",
		zap.String("run_id", res.RunID),
		zap.Int("companies", res.All),
		zap.Int("unified", res.Unified),
		zap.Int("errors", len(res.Errors)),
	)
	return nil
}

func initNotifier() telegram.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "" {
		zap.L().Info("telegram disabled, notifications are dropped")
		return telegram.Nop()
	}
	return telegram.New(cfg.Telegram.Token, cfg.Telegram.ChatID)
}

func initCache(ctx context.Context) (*cache.Store, error) {
	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open cache")
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, eris.Wrap(err, "migrate cache")
	}
	return store, nil
}

func initProxyPool() (*proxy.Pool, error) {
	opts := []proxy.Option{}
	if cfg.Proxy.TimeoutSecs > 0 {
		opts = append(opts, proxy.WithTimeout(time.Duration(cfg.Proxy.TimeoutSecs)*time.Second))
	}
	if cfg.Proxy.RatePerSecond > 0 {
		opts = append(opts, proxy.WithRateLimit(cfg.Proxy.RatePerSecond, cfg.Proxy.Burst))
	}
	pool, err := proxy.NewPool(cfg.Proxy.URLs, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "build proxy pool")
	}
	zap.L().Info("proxy pool ready", zap.Int("size", pool.Size()))
	return pool, nil
}

func initLookups(pool *proxy.Pool, translator translate.Translator) []registry.Lookup {
	var lookups []registry.Lookup
	if cfg.Registry.RussiaURL != "" {
		lookups = append(lookups, registry.NewRussia(pool, cfg.Registry.RussiaURL))
	} else {
		zap.L().Warn("russia registry url is not set, russian lookups are disabled")
	}
	lookups = append(lookups,
		registry.NewKazakhstan(pool, cfg.Registry.KazakhstanURL),
		registry.NewBelarus(pool, cfg.Registry.BelarusURL),
	)
	if cfg.Registry.EnableUzbekistan {
		lookups = append(lookups, registry.NewUzbekistan(pool, cfg.Registry.UzbekistanURL, translator))
	}
	return lookups
}

// checkBalance aborts the run when the search balance is too low to finish
// a batch, and warns early when it is getting close.
func checkBalance(ctx context.Context, xr xmlriver.Client, notifier telegram.Notifier) error {
	balance, err := xr.Balance(ctx)
	if err != nil {
		return eris.Wrap(err, "fetch search balance")
	}
	zap.L().Info("search balance", zap.Float64("balance", balance))

	switch {
	case balance < cfg.XMLRiver.MinBalance:
		msg := fmt.Sprintf("Баланс XMLRiver почти закончился: %.2f. Обработка остановлена.", balance)
		if err := notifier.Send(ctx, msg); err != nil {
			zap.L().Warn("balance notification failed", zap.Error(err))
		}
		return eris.Errorf("search balance %.2f is below minimum %.2f", balance, cfg.XMLRiver.MinBalance)
	case balance < cfg.XMLRiver.WarnBalance:
		msg := fmt.Sprintf("Баланс XMLRiver скоро закончится: %.2f. Пора пополнить.", balance)
		if err := notifier.Send(ctx, msg); err != nil {
			zap.L().Warn("balance notification failed", zap.Error(err))
		}
	}
	return nil
}
