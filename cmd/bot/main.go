package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chembot/bot"
	"chembot/impl/auth"
	"chembot/impl/core"
	"chembot/internal/audit"
	"chembot/internal/config"
	"chembot/internal/http-server/api"
	"chembot/internal/store"
	"chembot/lib/logger"
	"chembot/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath)

	// errors from every component reach the admins once the bot is installed
	notify := logger.NewNotifyProxy()
	log = logger.WithNotifier(log, notify, slog.LevelError)
	log.Info("starting chembot", slog.String("config", *configPath), slog.String("env", conf.Env))

	db, err := store.New(conf)
	if err != nil {
		log.Error("database connection", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	mongo := audit.NewMongoClient(conf)
	adminAuth := auth.New(db, conf.Telegram.AdminIds)
	engine := core.New(db, log, conf.Feedback.WindowDays)

	tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, engine, adminAuth, db, log, bot.BotConfig{
		Channel:       conf.Telegram.Channel,
		ChannelName:   conf.Telegram.ChannelName,
		OperatorGroup: conf.Telegram.OperatorGroup,
		AdminIds:      conf.Telegram.AdminIds,
		CardNumber:    conf.Telegram.CardNumber,
	})
	if err != nil {
		log.Error("telegram bot", sl.Err(err))
		os.Exit(1)
	}
	engine.SetRelay(tgBot)
	notify.Install(tgBot)
	if mongo != nil {
		engine.SetAuditor(mongo)
		tgBot.SetAuditor(mongo)
	}

	if err = engine.RestoreSurveys(); err != nil {
		log.Error("restoring survey timers", sl.Err(err))
	}

	go func() {
		if err := api.New(conf, log, engine, db); err != nil {
			log.Error("api server", sl.Err(err))
		}
	}()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		sig := <-stop
		log.Info("shutting down", slog.String("signal", sig.String()))
		engine.Stop()
		tgBot.Stop()
	}()

	if err = tgBot.Start(); err != nil {
		log.Error("bot stopped", sl.Err(err))
		os.Exit(1)
	}
	log.Info("stopped")
}
