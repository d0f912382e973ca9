// Package server defines the shared servers that host apps.
package server

import (
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/types"
)

type Server struct {
	types.Entity
	ID   id.ServerID `json:"id"`
	Name string      `json:"name"`
}
