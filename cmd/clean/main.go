package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/intervu/intervu/internal/pkg/clean"
	"github.com/intervu/intervu/internal/pkg/postgres"
	"github.com/intervu/intervu/internal/pkg/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &clean.Data{}
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

	dbCleaner, err := postgres.NewCleaner(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db cleaner")
	}

	filer, err := storage.NewFiler(ctx, storage.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), SSL: cfg.GetBool("filer.ssl"),
		PublicURL: cfg.GetString("filer.publicUrl")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}

	data.Cleaner, err = clean.NewSessionCleaner(dbCleaner, filer)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init session cleaner")
	}

	err = clean.StartWebServer(data)
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

         __
  _____/ /__  ____ _____
 / ___/ / _ \/ __ ` + "`" + `/ __ \
/ /__/ /  __/ /_/ / / / /
\___/_/\___/\__,_/_/ /_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("candidate video screening"))
}
