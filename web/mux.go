// Package web serves grids and trees over HTTP.
//
// Each grid gets a metadata and a data endpoint and each tree a data
// endpoint, all in the route group of the controller they are registered
// on:
//
//	GET /item/order_grid_metadata[/:id]
//	GET /item/order_grid_data[/:id]
//	GET /item/item_tree_data
package web

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ctxlog"
	"github.com/nickyhof/easyext/ext"
	"github.com/nickyhof/easyext/grid"
	"github.com/nickyhof/easyext/tree"
)

// Mux routes widget requests to the registered grids and trees.
type Mux struct {
	store  core.Store
	logger *slog.Logger
	app    *fiber.App
	routes []string
	nextID atomic.Uint64
}

// NewMux returns a Mux answering requests from store. A nil logger uses
// slog.Default.
func NewMux(store core.Store, logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mux{
		store:  store,
		logger: logger,
	}
	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          m.handleError,
	})

	m.app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return strconv.FormatUint(m.nextID.Add(1), 10)
		},
	}))
	m.app.Use(m.logRequest)
	m.app.Use(fiberrecover.New())

	return m
}

// Routes returns the registered routes in registration order.
func (m *Mux) Routes() []string {
	return slices.Clone(m.routes)
}

// Listener serves requests accepted from ln until Shutdown.
func (m *Mux) Listener(ln net.Listener) error {
	return m.app.Listener(ln)
}

// Shutdown stops accepting connections and waits up to timeout for
// in-flight requests.
func (m *Mux) Shutdown(timeout time.Duration) error {
	return m.app.ShutdownWithTimeout(timeout)
}

// Test runs req through the routes without a network listener.
func (m *Mux) Test(req *http.Request) (*http.Response, error) {
	return m.app.Test(req, -1)
}

// logRequest attaches a request-scoped logger to the user context and logs
// the outcome of every request. Errors are rendered here so the logged
// status is the one sent.
func (m *Mux) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	logger := m.logger.With(
		"request_id", strings.Clone(c.GetRespHeader(fiber.HeaderXRequestID)),
		"method", c.Method(),
		"path", strings.Clone(c.Path()),
	)
	c.SetUserContext(ctxlog.WithLogger(c.UserContext(), logger))

	if err := c.Next(); err != nil {
		if err := m.handleError(c, err); err != nil {
			return err
		}
	}

	logger.Info("request completed", "status", c.Response().StatusCode(), "duration", time.Since(start))
	return nil
}

// Controller is the route group of one controller, /{name}/.
type Controller struct {
	mux    *Mux
	name   string
	router fiber.Router
}

func (m *Mux) Controller(name string) *Controller {
	return &Controller{mux: m, name: name, router: m.app.Group("/" + name)}
}

// Grid registers the metadata and data endpoints of g.
func (c *Controller) Grid(g *grid.Grid) *Controller {
	metadata := func(fc *fiber.Ctx) error {
		req := c.request(fc)
		return fc.JSON(g.Metadata(req, fc.Params("id")))
	}
	data := func(fc *fiber.Ctx) error {
		req := c.request(fc)
		if id := fc.Params("id"); id != "" {
			req.Params.Set("id", id)
		}
		rows, err := g.Rows(req)
		if err != nil {
			return err
		}
		return fc.JSON(rows)
	}

	c.get(g.MetadataAction(), metadata)
	c.get(g.MetadataAction()+"/:id", metadata)
	c.get(g.DataAction(), data)
	c.get(g.DataAction()+"/:id", data)
	return c
}

// Tree registers the data endpoint of t.
func (c *Controller) Tree(t *tree.Tree) *Controller {
	c.get(t.DataAction(), func(fc *fiber.Ctx) error {
		nodes, err := t.Children(c.request(fc))
		if err != nil {
			return err
		}
		return fc.JSON(nodes)
	})
	return c
}

func (c *Controller) get(path string, h fiber.Handler) {
	c.router.Get("/"+path, h)
	c.mux.routes = append(c.mux.routes, fiber.MethodGet+" /"+c.name+"/"+path)
}

func (c *Controller) request(fc *fiber.Ctx) *ext.Request {
	params := url.Values{}
	fc.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		params.Add(string(key), string(value))
	})

	return &ext.Request{
		Context: fc.UserContext(),
		Params:  params,
		Router:  c.urlBuilder(fc),
		Store:   c.mux.store,
	}
}

// urlBuilder builds absolute URLs of this controller's actions on the host
// the request came in on. X-Forwarded-Proto may only select http or https.
func (c *Controller) urlBuilder(fc *fiber.Ctx) ext.Router {
	scheme := "http"
	if fc.Context().IsTLS() {
		scheme = "https"
	}
	switch proto := strings.ToLower(strings.TrimSpace(fc.Get(fiber.HeaderXForwardedProto))); proto {
	case "http", "https":
		scheme = proto
	}
	host := string(fc.Request().Host())

	return ext.RouterFunc(func(action, id string) string {
		u := scheme + "://" + host + "/" + c.name + "/" + action
		if id != "" {
			u += "/" + url.PathEscape(id)
		}
		return u
	})
}
