package main

import (
	"log"
	"os"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
	appfs "github.com/trezcool/campus/fs"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB; migrations are left to the migrate command
	store, err := storage.Open(conf, false)
	if err != nil {
		logger.Fatal("setting up database", err)
	}

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, logger)

	// start CLI
	cli := newCommandLine(store, validate, translator)
	err = cli.run(os.Args)
	_ = store.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
