// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/nullchain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/nullchain/foundation/blockchain/state"
	"github.com/ardanlabs/nullchain/foundation/events"
	"github.com/ardanlabs/nullchain/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/blocks/height/:height", pbl.BlockByHeight)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/blocks/height/:height/tx/:txid", pbl.TransactionProof)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByHeight)
	app.Handle(http.MethodPost, version, "/blocks", pbl.SubmitBlock)
	app.Handle(http.MethodGet, version, "/difficulty/target/:bits", pbl.Target)
	app.Handle(http.MethodPost, version, "/difficulty/adjust", pbl.Adjust)
	app.Handle(http.MethodGet, version, "/mining/start", pbl.StartMining)
}
