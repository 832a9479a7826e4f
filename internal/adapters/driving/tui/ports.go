// Package tui is the full-screen terminal front end: a menu, the ask screen
// and a catalog browser, all driven through the driving ports.
package tui

import (
	"errors"

	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

var (
	ErrInvalidPorts = errors.New("tui: invalid ports configuration")
	ErrMissingAsker = errors.New("tui: ask service is required")
)

// Ports are the services the screens call. Catalog may be nil, in which
// case the menu shows no stats and the reports screen shows an error.
type Ports struct {
	Asker   driving.Asker
	Catalog driving.CatalogService
}

func NewPorts(asker driving.Asker, catalog driving.CatalogService) *Ports {
	return &Ports{Asker: asker, Catalog: catalog}
}

// Validate requires an Asker.
func (p *Ports) Validate() error {
	switch {
	case p == nil:
		return ErrInvalidPorts
	case p.Asker == nil:
		return ErrMissingAsker
	}
	return nil
}
