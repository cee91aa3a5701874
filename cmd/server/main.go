package main

import (
	"github.com/charmbracelet/log"
	"github.com/gokcenbank/ledger/infra/initializer"
	"github.com/gokcenbank/ledger/webapi"
)

// @title Ledger API
// @version 1.0.0
// @description Retail banking ledger API documentation
// @host localhost:3000
// @BasePath /
//
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Enter your token in the format: `Bearer {token}`
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	deps, err := initializer.InitializeDependencies()
	if err != nil {
		return err
	}

	app := webapi.SetupApp(webapi.Services{
		Auth:     deps.Auth,
		Account:  deps.Account,
		Transfer: deps.Transfer,
	}, deps.Config)

	deps.Logger.Info("starting server",
		"env", deps.Config.App.Env, "addr", deps.Config.HTTP.Addr)
	defer deps.Store.Persist()

	return app.Listen(deps.Config.HTTP.Addr)
}
