package pandda

import (
	"github.com/xraph/pandda/admin"
	"github.com/xraph/pandda/id"
)

// Actor identifies who performs an operation. Every mutating call takes
// one explicitly.
type Actor struct {
	ID     id.AdminID
	Master bool
}

// SystemActor is used by scheduled jobs and the command line. It has
// master rights and no admin id.
var SystemActor = Actor{Master: true}

// ActorFromAdmin builds the Actor for an authenticated admin.
func ActorFromAdmin(a *admin.Admin) Actor {
	return Actor{ID: a.ID, Master: a.Master}
}

func (a Actor) requireMaster() error {
	if !a.Master {
		return ErrForbidden
	}
	return nil
}
