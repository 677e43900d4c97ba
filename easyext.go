package easyext

import (
	"log/slog"

	"github.com/nickyhof/easyext/config"
	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/db"
	"github.com/nickyhof/easyext/ps"
	"github.com/nickyhof/easyext/web"
)

type Instance struct {
	Persistence *ps.Persistence
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

// Store opens the record store of a database, creating the database when
// it does not exist yet.
func (instance *Instance) Store(database string, identity core.Identity) (*db.Store, error) {
	return db.NewStore(instance.Persistence, database, identity)
}

// Handler serves every grid and tree declared in cfg from store.
func Handler(store core.Store, cfg *config.Config, logger *slog.Logger) *web.Mux {
	mux := web.NewMux(store, logger)
	for _, ctrl := range cfg.Controllers {
		c := mux.Controller(ctrl.Name)
		for _, g := range ctrl.Grids {
			c.Grid(g)
		}
		for _, t := range ctrl.Trees {
			c.Tree(t)
		}
	}
	return mux
}
