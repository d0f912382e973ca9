// Package accesspoint defines access points: credentialed slots a customer
// holds on an app hosted by one of their servers.
package accesspoint

import (
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/types"
)

type AccessPoint struct {
	types.Entity
	ID         id.AccessPointID `json:"id"`
	CustomerID id.CustomerID    `json:"customer_id"`
	ServerID   id.ServerID      `json:"server_id"`
	AppID      id.AppID         `json:"app_id"`
	Slots      int              `json:"slots"`
	Username   string           `json:"username"`
	Secret     string           `json:"secret"`
}

// Clone returns a copy of a.
func (a *AccessPoint) Clone() *AccessPoint {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// CloneAll copies every access point in aps.
func CloneAll(aps []*AccessPoint) []*AccessPoint {
	out := make([]*AccessPoint, len(aps))
	for i, a := range aps {
		out[i] = a.Clone()
	}
	return out
}
