package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/intervu/intervu/internal/pkg/attempt"
	"github.com/intervu/intervu/internal/pkg/ingest"
	"github.com/intervu/intervu/internal/pkg/postgres"
	"github.com/intervu/intervu/internal/pkg/scoring"
	"github.com/intervu/intervu/internal/pkg/storage"
	"github.com/intervu/intervu/internal/pkg/upload"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &upload.Data{}
	data.Port = cfg.GetInt("port")
	var err error

	ctx := context.Background()

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
	data.DB = db

	saver, err := storage.NewFiler(ctx, storage.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), SSL: cfg.GetBool("filer.ssl"),
		PublicURL: cfg.GetString("filer.publicUrl")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init file saver")
	}
	if err := saver.Live(ctx); err != nil {
		goapp.Log.Fatal().Err(err).Msg("storage not ready")
	}

	sender, err := postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	data.Tracker, err = attempt.NewTracker(db, cfg.GetInt("attempt.maxRetakes"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init attempt tracker")
	}

	data.Ingestor, err = ingest.NewIngestor(saver, db, sender, cfg.GetInt64("upload.maxSizeMb")*1024*1024)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init ingestor")
	}

	data.Scorer, err = scoring.NewEngine(db)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init scoring engine")
	}

	err = upload.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
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

             __                __
  __  ______/ /___  ____ _____/ /
 / / / / __  / __ \/ __ ` + "`" + `/ __  /
/ /_/ / /_/ / /_/ / /_/ / /_/ /
\__,_/\__,_/ .___/\__,_/\__,_/
          /_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("candidate video screening"))
}
