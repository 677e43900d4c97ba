// Package config declares grids and trees in HCL files.
//
//	controller "item" {
//	  grid "order" {
//	    delegate "item" { except = ["quantity"] }
//	    column "name" {}
//	    column "quantity" { label = "Qty" }
//	  }
//	  tree "item" {
//	    node "item" { text = name children = orders }
//	  }
//	}
//
// Columns appear in the grid in block order. Unknown attributes and blocks
// fail the load.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/nickyhof/easyext/ctxlog"
	"github.com/nickyhof/easyext/ext"
	"github.com/nickyhof/easyext/grid"
	"github.com/nickyhof/easyext/tree"
)

// Config is the set of controllers declared across the loaded files.
type Config struct {
	Controllers []*Controller
}

// Controller groups the grids and trees served under one path segment.
type Controller struct {
	Name  string
	Grids []*grid.Grid
	Trees []*tree.Tree
}

// Controller returns the named controller, or nil.
func (c *Config) Controller(name string) *Controller {
	for _, ctrl := range c.Controllers {
		if ctrl.Name == name {
			return ctrl
		}
	}
	return nil
}

type fileRoot struct {
	Controllers []*controllerBlock `hcl:"controller,block"`
}

type controllerBlock struct {
	Name  string       `hcl:"name,label"`
	Grids []*gridBlock `hcl:"grid,block"`
	Trees []*treeBlock `hcl:"tree,block"`
}

// Load reads every .hcl file under the given paths. Missing paths are
// skipped. Controllers declared in several files are merged.
func Load(ctx context.Context, paths ...string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered config files", "count", len(files))

	parser := hclparse.NewParser()
	cfg := &Config{}
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: parse %s: %w", ext.ErrConfig, file, diags)
		}
		if err := cfg.decode(f.Body); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	logger.Debug("config loaded", "controllers", len(cfg.Controllers))
	return cfg, nil
}

// Parse decodes a single configuration document.
func Parse(src []byte, filename string) (*Config, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: parse %s: %w", ext.ErrConfig, filename, diags)
	}

	cfg := &Config{}
	if err := cfg.decode(f.Body); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(body hcl.Body) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("%w: %w", ext.ErrConfig, diags)
	}

	for _, block := range root.Controllers {
		ctrl := c.Controller(block.Name)
		if ctrl == nil {
			ctrl = &Controller{Name: block.Name}
			c.Controllers = append(c.Controllers, ctrl)
		}

		for _, gb := range block.Grids {
			g, err := gb.build()
			if err != nil {
				return err
			}
			ctrl.Grids = append(ctrl.Grids, g)
		}
		for _, tb := range block.Trees {
			t, err := tb.build()
			if err != nil {
				return err
			}
			ctrl.Trees = append(ctrl.Trees, t)
		}
	}

	return nil
}

func findHCLFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, ok := seen[p]; !ok {
			files = append(files, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
