package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/intervu/intervu/internal/pkg/consul"
	"github.com/intervu/intervu/internal/pkg/postgres"
	"github.com/intervu/intervu/internal/pkg/recognizer"
	rapi "github.com/intervu/intervu/internal/pkg/recognizer/api"
	"github.com/intervu/intervu/internal/pkg/scoring"
	"github.com/intervu/intervu/internal/pkg/storage"
	"github.com/intervu/intervu/internal/pkg/tmpfile"
	"github.com/intervu/intervu/internal/pkg/transcoder"
	"github.com/intervu/intervu/internal/pkg/transcription"
	"github.com/intervu/intervu/internal/pkg/utils"
	"github.com/intervu/intervu/internal/pkg/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	if err := db.Live(ctx); err != nil {
		goapp.Log.Fatal().Err(err).Msg("db not ready")
	}

	gueClient, err := gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	sender, err := postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	filer, err := storage.NewFiler(ctx, storage.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), SSL: cfg.GetBool("filer.ssl"),
		PublicURL: cfg.GetString("filer.publicUrl")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}
	if err := filer.Live(ctx); err != nil {
		goapp.Log.Fatal().Err(err).Msg("storage not ready")
	}

	ffmpeg, err := transcoder.NewFFMpeg(cfg.GetString("transcoder.cmd"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcoder")
	}

	provider, err := initRecognizerProvider(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init speech backend")
	}

	tmp, err := tmpfile.NewManager(cfg.GetString("tmp.dir"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init tmp manager")
	}
	sweepInterval, sweepMaxAge := sweepSettings(cfg)
	cleanupDone := tmp.StartPeriodicCleanup(ctx, sweepInterval, sweepMaxAge)

	engine, err := scoring.NewEngine(db)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init scoring engine")
	}

	pipeline, err := transcription.NewWorker(db, filer, ffmpeg, provider, engine, tmp, sender,
		rapi.DefaultConfig(cfg.GetString("speech.language")))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init pipeline")
	}

	data := &worker.ServiceData{
		GueClient:   gueClient,
		WorkerCount: cfg.GetInt("worker.count"),
		Pipeline:    pipeline,
		Testing:     cfg.GetBool("worker.testing"),
	}

	printBanner()
	go utils.RunPerfEndpoint()

	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		<-cleanupDone
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

type recognizerProvider interface {
	Get() (rapi.Recognizer, string, error)
}

// initRecognizerProvider wires consul discovery when configured,
// else a single static speech backend instance
func initRecognizerProvider(ctx context.Context, cfg *viper.Viper) (recognizerProvider, error) {
	if addr := cfg.GetString("consul.address"); addr != "" {
		cCfg := consulapi.DefaultConfig()
		cCfg.Address = addr
		pr, err := consul.NewProvider(cCfg, cfg.GetString("consul.service"))
		if err != nil {
			return nil, err
		}
		interval := cfg.GetDuration("consul.checkInterval")
		if interval == 0 {
			interval = time.Second * 30
		}
		if _, err := pr.StartRegistryLoop(ctx, interval); err != nil {
			return nil, err
		}
		return pr, nil
	}
	pr, err := recognizer.NewStaticProvider(cfg.GetString("speech.url"), cfg.GetString("speech.liveUrl"))
	if err != nil {
		return nil, err
	}
	rec, _, _ := pr.Get()
	if err := rec.Live(ctx); err != nil {
		return nil, err
	}
	return pr, nil
}

func sweepSettings(cfg *viper.Viper) (time.Duration, time.Duration) {
	interval := cfg.GetDuration("tmp.sweepInterval")
	if interval == 0 {
		interval = time.Minute * 15
	}
	maxAge := cfg.GetDuration("tmp.maxAge")
	if maxAge == 0 {
		// must exceed the worst case upload + transcode duration
		maxAge = time.Minute * 30
	}
	return interval, maxAge
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
    ____ _    ____  __
   /  _/| |  / / / / /
   / /  | | / / / / /
 _/ /   | |/ / /_/ /
/___/   |___/\____/   v: %s

                      __
 _      ______  _____/ /_____  _____
| | /| / / __ \/ ___/ //_/ _ \/ ___/
| |/ |/ / /_/ / /  / ,< /  __/ /
|__/|__/\____/_/  /_/|_|\___/_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("candidate video screening"))
}
