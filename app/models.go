// Package app defines the apps a server hosts. An app that does not allow
// multiple concurrent logins is exclusive: a username may appear on it at
// most once across all customers.
package app

import (
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/types"
)

// Kind is the device family an app targets.
type Kind string

const (
	KindAndroid   Kind = "android"
	KindWeb       Kind = "web"
	KindIOS       Kind = "ios"
	KindSmartTV   Kind = "smarttv"
	KindFirestick Kind = "firestick"
	KindRoku      Kind = "roku"
	KindOther     Kind = "other"
)

type App struct {
	types.Entity
	ID          id.AppID    `json:"id"`
	Name        string      `json:"name"`
	ServerID    id.ServerID `json:"server_id"`
	Kind        Kind        `json:"kind"`
	MultiAccess bool        `json:"multi_access"`
}

// Exclusive reports whether the app forbids shared usernames.
func (a *App) Exclusive() bool { return !a.MultiAccess }

// Index maps apps by id.
func Index(apps []*App) map[id.AppID]*App {
	out := make(map[id.AppID]*App, len(apps))
	for _, a := range apps {
		out[a.ID] = a
	}
	return out
}
