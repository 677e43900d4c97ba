// Package ext holds what grids and trees share: the request they answer,
// accessors that read values off records, and their errors.
package ext

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/nickyhof/easyext/core"
)

// Router builds the URL of an action of the controller serving a request.
// id is empty when the action takes no id.
type Router interface {
	URLFor(action, id string) string
}

type RouterFunc func(action, id string) string

func (f RouterFunc) URLFor(action, id string) string {
	return f(action, id)
}

// Request is one widget call: its parameters and the collaborators needed
// to answer it.
type Request struct {
	Context context.Context
	Params  url.Values
	Router  Router
	Store   core.Store
}

// Ctx returns the request context, or context.Background when unset.
func (r *Request) Ctx() context.Context {
	if r == nil || r.Context == nil {
		return context.Background()
	}
	return r.Context
}

// Param returns the first value of a parameter, or "".
func (r *Request) Param(name string) string {
	if r == nil {
		return ""
	}
	return r.Params.Get(name)
}

// HasParam reports whether the parameter was sent at all.
func (r *Request) HasParam(name string) bool {
	if r == nil {
		return false
	}
	return r.Params.Has(name)
}

// IntParam parses the leading integer of a parameter the lenient way the
// widget expects: surrounding junk is ignored and anything without a
// leading number is 0.
func (r *Request) IntParam(name string) int {
	return leadingInt(r.Param(name))
}

// URLFor builds an action URL through the router. Without a router the
// action is returned as a relative path.
func (r *Request) URLFor(action, id string) string {
	if r == nil || r.Router == nil {
		if id == "" {
			return action
		}
		return action + "/" + url.PathEscape(id)
	}
	return r.Router.URLFor(action, id)
}

func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\n\r\f\v")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
